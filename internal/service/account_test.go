package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/auth"
	"gps-fleet-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newAccounts(f *fixture) *AccountService {
	return NewAccountService(AccountDependencies{
		Users:             f.users,
		Vehicles:          f.vehicles,
		Mirror:            f.mirror,
		JWTSecret:         testSecret,
		JWTExpiration:     time.Hour,
		SideEffectTimeout: 50 * time.Millisecond,
	})
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	user, err := accounts.CreateUser(context.Background(), NewUser{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	res, err := accounts.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.Role)
	claims, err := auth.ParseJWT(testSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = accounts.Login(context.Background(), "alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))
	_, err = accounts.Login(context.Background(), "nobody", "pw")
	assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))
}

func TestCreateUser_Conflict(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	_, err := accounts.CreateUser(context.Background(), NewUser{Username: "alice", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = accounts.CreateUser(context.Background(), NewUser{Username: "alice", Email: "other@example.com", Password: "pw"})
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	_, err = accounts.CreateUser(context.Background(), NewUser{Username: "bob"})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
}

func strPtr(s string) *string { return &s }

func TestCreateVehicle(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	owner := f.user(t, "alice")

	v, err := accounts.CreateVehicle(context.Background(), VehicleInput{
		UserID: owner.ID, Name: "Truck", Type: "truck", Plate: "AB123CD",
		DeviceID: strPtr("DEV-7"), DevicePhone: strPtr(" +5491155550000 "),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultLat, v.Lat)
	assert.Equal(t, "active", v.Status)
	assert.Equal(t, "+5491155550000", v.DevicePhone)

	_, err = accounts.CreateVehicle(context.Background(), VehicleInput{
		UserID: owner.ID, Name: "Other", Type: "car", Plate: "ZZ", DeviceID: strPtr("DEV-7"),
	})
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))

	_, err = accounts.CreateVehicle(context.Background(), VehicleInput{UserID: owner.ID, Name: "No device", Type: "car", Plate: "ZZ"})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	_, err = accounts.CreateVehicle(context.Background(), VehicleInput{UserID: owner.ID, Name: "Blank", Type: "car", Plate: "ZZ", DeviceID: strPtr(" ")})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

	_, err = accounts.CreateVehicle(context.Background(), VehicleInput{
		UserID: 9999, Name: "Orphan", Type: "car", Plate: "ZZ", DeviceID: strPtr("DEV-8"),
	})
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestUpdateVehicle_ResetsSpeed(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	owner := f.user(t, "alice")
	v := f.vehicle(t, owner.ID, "DEV-1")
	f.vehicle(t, owner.ID, "DEV-2")
	_, err := f.svc.Ingest(context.Background(), LocationUpdate{DeviceID: "DEV-1", Lat: 1, Lng: 2, Speed: 70})
	require.NoError(t, err)

	lat := -31.4
	updated, err := accounts.UpdateVehicle(context.Background(), v.ID, VehicleInput{Name: "Renamed", Lat: &lat, DevicePhone: strPtr("555")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, -31.4, updated.Lat)
	assert.Equal(t, "555", updated.DevicePhone)
	assert.Zero(t, updated.Speed)

	_, err = accounts.UpdateVehicle(context.Background(), v.ID, VehicleInput{DeviceID: strPtr("DEV-2")})
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))

	_, err = accounts.UpdateVehicle(context.Background(), 9999, VehicleInput{})
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestUpdateVehicle_OmittedDeviceKeepsIngestionWorking(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	owner := f.user(t, "alice")
	v := f.vehicle(t, owner.ID, "DEV-1")

	updated, err := accounts.UpdateVehicle(context.Background(), v.ID, VehicleInput{Name: "X"})
	require.NoError(t, err)
	require.NotNil(t, updated.DeviceID)
	assert.Equal(t, "DEV-1", *updated.DeviceID)

	_, err = f.svc.Ingest(context.Background(), LocationUpdate{DeviceID: "DEV-1", Lat: 1, Lng: 2})
	require.NoError(t, err)

	unlinked, err := accounts.UpdateVehicle(context.Background(), v.ID, VehicleInput{DeviceID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, unlinked.DeviceID)

	_, err = f.svc.Ingest(context.Background(), LocationUpdate{DeviceID: "DEV-1", Lat: 1, Lng: 2})
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestListAndUpdateUsers(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	admin := f.user(t, "root")
	alice, err := accounts.CreateUser(context.Background(), NewUser{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	users, err := accounts.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[1].Username)

	promoted, err := accounts.UpdateUser(context.Background(), admin.ID, alice.ID, UserUpdate{
		Role: strPtr(models.RoleAdmin), Keyword: strPtr("blue"), Password: "reset",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	assert.Equal(t, "alice", promoted.Username)
	assert.Equal(t, "blue", promoted.Keyword)

	res, err := accounts.Login(context.Background(), "alice", "reset")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.Role)

	_, err = accounts.UpdateUser(context.Background(), admin.ID, alice.ID, UserUpdate{Username: strPtr("root")})
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	_, err = accounts.UpdateUser(context.Background(), admin.ID, alice.ID, UserUpdate{Role: strPtr("owner")})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	_, err = accounts.UpdateUser(context.Background(), alice.ID, alice.ID, UserUpdate{Role: strPtr(models.RoleUser)})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	_, err = accounts.UpdateUser(context.Background(), admin.ID, 9999, UserUpdate{})
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	alice, err := accounts.CreateUser(context.Background(), NewUser{Username: "alice", Email: "alice@example.com", Password: "old"})
	require.NoError(t, err)
	ctx := context.Background()

	updated, err := accounts.UpdateProfile(ctx, alice.ID, ProfileUpdate{Keyword: strPtr("green")})
	require.NoError(t, err)
	assert.Equal(t, "green", updated.Keyword)

	cases := []ProfileUpdate{
		{NewPassword: "new", ConfirmPassword: "new"},
		{OldPassword: "old", NewPassword: "new", ConfirmPassword: "other"},
		{OldPassword: "old"},
		{OldPassword: "wrong", NewPassword: "new", ConfirmPassword: "new"},
	}
	for _, in := range cases {
		_, err := accounts.UpdateProfile(ctx, alice.ID, in)
		assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err), "%+v", in)
	}
	_, err = accounts.Login(ctx, "alice", "old")
	require.NoError(t, err)

	_, err = accounts.UpdateProfile(ctx, alice.ID, ProfileUpdate{OldPassword: "old", NewPassword: "new", ConfirmPassword: "new"})
	require.NoError(t, err)
	_, err = accounts.Login(ctx, "alice", "new")
	require.NoError(t, err)

	profile, err := accounts.Profile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "green", profile.Keyword)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	admin := f.user(t, "root")
	owner := f.user(t, "alice")
	v := f.vehicle(t, owner.ID, "DEV-1")

	err := accounts.DeleteUser(context.Background(), admin.ID, admin.ID)
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

	require.NoError(t, accounts.DeleteUser(context.Background(), admin.ID, owner.ID))
	assert.Equal(t, []uint{v.ID}, f.mirror.deleted)

	err = accounts.DeleteUser(context.Background(), admin.ID, owner.ID)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestDeleteVehicle(t *testing.T) {
	f := newFixture(t)
	accounts := newAccounts(f)
	owner := f.user(t, "alice")
	v := f.vehicle(t, owner.ID, "DEV-1")

	require.NoError(t, accounts.DeleteVehicle(context.Background(), v.ID))
	assert.Equal(t, []uint{v.ID}, f.mirror.deleted)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(accounts.DeleteVehicle(context.Background(), v.ID)))

	list, err := accounts.ListVehicles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
