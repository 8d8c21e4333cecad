// server/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// --- Sub-structs, mirroring the YAML layout ---

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Debug       bool   `mapstructure:"debug"`
	FrontendURL string `mapstructure:"frontendURL"`
	// Timezone is the civil zone used for last_updated stamps, relational
	// history timestamps and history query bounds.
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, mysql, sqlite
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
	SSLMode  string `mapstructure:"sslMode"`
	// Path is only used by the sqlite driver.
	Path string `mapstructure:"path"`
}

type MongoConfig struct {
	URI     string        `mapstructure:"uri"`
	DBName  string        `mapstructure:"dbName"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channelPrefix"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type S3Config struct {
	Bucket           string        `mapstructure:"bucket"`
	Region           string        `mapstructure:"region"`
	AccessKeyID      string        `mapstructure:"accessKeyID"`
	SecretAccessKey  string        `mapstructure:"secretAccessKey"`
	CloudFrontDomain string        `mapstructure:"cloudFrontDomain"`
	AudioPrefix      string        `mapstructure:"audioPrefix"`
	PresignTTL       time.Duration `mapstructure:"presignTTL"`
}

type MQTTConfig struct {
	BrokerURL   string `mapstructure:"brokerURL"`
	ClientID    string `mapstructure:"clientID"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topicPrefix"`
	QoS         byte   `mapstructure:"qos"`
}

// RateLimitConfig throttles /api/update_location per client IP. Zero
// RequestsPerSecond disables it, since trackers behind one NAT share an IP.
type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idleTTL"`
}

type SideEffectsConfig struct {
	// Timeout bounds every best-effort step (mirror write, broadcast, device push).
	Timeout time.Duration `mapstructure:"timeout"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// --- Main Config struct ---

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	S3          S3Config          `mapstructure:"s3"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	RateLimit   RateLimitConfig   `mapstructure:"rateLimit"`
	SideEffects SideEffectsConfig `mapstructure:"sideEffects"`
	Admin       AdminConfig       `mapstructure:"admin"`
}

// Location resolves Server.Timezone, falling back to the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || c.Server.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid server.timezone %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.frontendURL", "http://localhost:3000")
	v.SetDefault("server.timezone", "America/Argentina/Buenos_Aires")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbName", "gps_monitoring")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.path", "gps_monitoring.db")

	v.SetDefault("mongo.dbName", "gps_monitoring")
	v.SetDefault("mongo.timeout", 2*time.Second)

	v.SetDefault("redis.channelPrefix", "gps:")

	v.SetDefault("jwt.secret", "replace-me-in-prod")
	v.SetDefault("jwt.expiration", 24*time.Hour)

	v.SetDefault("s3.audioPrefix", "audio")
	v.SetDefault("s3.presignTTL", 15*time.Minute)

	v.SetDefault("mqtt.clientID", "gps-fleet-api-server")
	v.SetDefault("mqtt.topicPrefix", "devices")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("rateLimit.requestsPerSecond", 0)
	v.SetDefault("rateLimit.burst", 10)
	v.SetDefault("rateLimit.idleTTL", "10m")

	v.SetDefault("sideEffects.timeout", 2*time.Second)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.email", "admin@example.com")
}

// LoadConfig reads config.yaml from path and overrides it with environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	// Explicit bindings, e.g. key "mongo.uri" <- env MONGO_URI
	bindings := map[string]string{
		"server.port":                   "SERVER_PORT",
		"server.debug":                  "DEBUG",
		"server.frontendURL":            "FRONTEND_URL",
		"server.timezone":               "TIME_ZONE",
		"database.driver":               "DB_DRIVER",
		"database.host":                 "DB_HOST",
		"database.port":                 "DB_PORT",
		"database.user":                 "DB_USER",
		"database.password":             "DB_PASSWORD",
		"database.dbName":               "DB_NAME",
		"database.sslMode":              "DB_SSLMODE",
		"database.path":                 "SQLITE_DB_PATH",
		"mongo.uri":                     "MONGO_URI",
		"mongo.dbName":                  "MONGO_DBNAME",
		"mongo.timeout":                 "MONGO_TIMEOUT",
		"redis.addr":                    "REDIS_ADDR",
		"redis.password":                "REDIS_PASSWORD",
		"redis.db":                      "REDIS_DB",
		"redis.channelPrefix":           "REDIS_CHANNEL_PREFIX",
		"jwt.secret":                    "JWT_SECRET",
		"jwt.expiration":                "JWT_EXPIRATION",
		"s3.bucket":                     "S3_BUCKET",
		"s3.region":                     "S3_REGION",
		"s3.accessKeyID":                "S3_ACCESS_KEY_ID",
		"s3.secretAccessKey":            "S3_SECRET_ACCESS_KEY",
		"s3.cloudFrontDomain":           "S3_CLOUDFRONT_DOMAIN",
		"s3.audioPrefix":                "S3_AUDIO_PREFIX",
		"mqtt.brokerURL":                "MQTT_BROKER_URL",
		"mqtt.clientID":                 "MQTT_CLIENT_ID",
		"mqtt.username":                 "MQTT_USERNAME",
		"mqtt.password":                 "MQTT_PASSWORD",
		"mqtt.topicPrefix":              "MQTT_TOPIC_PREFIX",
		"rateLimit.requestsPerSecond":   "RATE_LIMIT_RPS",
		"rateLimit.burst":               "RATE_LIMIT_BURST",
		"rateLimit.idleTTL":             "RATE_LIMIT_IDLE_TTL",
		"sideEffects.timeout":           "SIDE_EFFECT_TIMEOUT",
		"admin.username":                "ADMIN_USERNAME",
		"admin.email":                   "ADMIN_EMAIL",
		"admin.password":                "ADMIN_PASSWORD",
	}
	for key, env := range bindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	// A missing config.yaml is fine, env vars and defaults still apply.
	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
