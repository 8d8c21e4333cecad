// Package notify pushes command changes to devices over MQTT.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gps-fleet-api-server/config"
	"gps-fleet-api-server/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type MQTTNotifier struct {
	client      mqtt.Client
	topicPrefix string
	qos         byte
}

// BuildMQTTClient prepares an auto-reconnecting client; call Connect to dial.
func BuildMQTTClient(cfg config.MQTTConfig, log *zap.Logger) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.OnConnect = func(mqtt.Client) {
		log.Info("Connected to MQTT broker", zap.String("broker", cfg.BrokerURL))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("MQTT connection lost", zap.Error(err))
	}

	return mqtt.NewClient(opts)
}

func NewMQTTNotifier(client mqtt.Client, cfg config.MQTTConfig) *MQTTNotifier {
	return &MQTTNotifier{
		client:      client,
		topicPrefix: strings.Trim(cfg.TopicPrefix, "/"),
		qos:         cfg.QoS,
	}
}

// CommandTopic is the topic a device listens on for command changes.
func (n *MQTTNotifier) CommandTopic(deviceID string) string {
	return fmt.Sprintf("%s/%s/commands", n.topicPrefix, deviceID)
}

// NotifyCommand publishes event to the device and waits for the broker ack
// until ctx is done.
func (n *MQTTNotifier) NotifyCommand(ctx context.Context, deviceID string, event models.CommandEvent) error {
	if deviceID == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	token := n.client.Publish(n.CommandTopic(deviceID), n.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
