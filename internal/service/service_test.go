package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gps-fleet-api-server/internal/database"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testZone = time.FixedZone("ART", -3*60*60)
	testNow  = time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
)

type fakeMirror struct {
	mu        sync.Mutex
	recorded  []models.PositionDocument
	states    []models.CurrentStateDocument
	positions []models.PositionDocument
	deleted   []uint
	err       error
	block     bool
	queries   int
}

func (m *fakeMirror) wait(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

func (m *fakeMirror) RecordPosition(ctx context.Context, pos models.PositionDocument, state models.CurrentStateDocument) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, pos)
	m.states = append(m.states, state)
	return nil
}

func (m *fakeMirror) Positions(ctx context.Context, vehicleID uint, fromUTC, toUTC time.Time) ([]models.PositionDocument, error) {
	m.mu.Lock()
	m.queries++
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	var out []models.PositionDocument
	for _, p := range m.positions {
		if p.VehicleID == vehicleID && !p.Timestamp.Before(fromUTC) && !p.Timestamp.After(toUTC) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *fakeMirror) DeleteVehicle(ctx context.Context, vehicleID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, vehicleID)
	return m.err
}

func (m *fakeMirror) recordedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recorded)
}

type publishedEvent struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
	block  bool
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})
	p.mu.Unlock()
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.err
}

func (p *fakePublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushed []string
}

func (n *fakeNotifier) NotifyCommand(_ context.Context, deviceID string, event models.CommandEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, deviceID+":"+event.Command)
	return nil
}

type fixture struct {
	db        *gorm.DB
	vehicles  repository.VehicleRepository
	users     repository.UserRepository
	mirror    *fakeMirror
	publisher *fakePublisher
	notifier  *fakeNotifier
	svc       *TrackingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Discard,
		NowFunc: func() time.Time { return testNow.In(testZone) },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	f := &fixture{
		db:        db,
		vehicles:  repository.NewVehicleRepository(db),
		users:     repository.NewUserRepository(db),
		mirror:    &fakeMirror{},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
	}
	f.svc = NewTrackingService(Dependencies{
		Vehicles:          f.vehicles,
		History:           repository.NewHistoryRepository(db),
		Mirror:            f.mirror,
		Publisher:         f.publisher,
		Notifier:          f.notifier,
		Location:          testZone,
		SideEffectTimeout: 50 * time.Millisecond,
		Logger:            zap.NewNop(),
		Now:               func() time.Time { return testNow },
	})
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) vehicle(t *testing.T, ownerID uint, deviceID string) *models.Vehicle {
	t.Helper()
	id := deviceID
	v := &models.Vehicle{
		UserID: ownerID, Name: "Van", Type: "van", Plate: "AA123BB",
		DeviceID: &id, Lat: models.DefaultLat, Lng: models.DefaultLng,
	}
	require.NoError(t, f.vehicles.Create(context.Background(), v))
	return v
}

func (f *fixture) historyCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.LocationHistory{}).Count(&n).Error)
	return n
}

var errMirrorDown = errors.New("mirror down")
