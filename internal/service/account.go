package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/auth"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/repository"

	"go.uber.org/zap"
)

// AccountService handles login and the admin user and vehicle management.
type AccountService struct {
	users     repository.UserRepository
	vehicles  repository.VehicleRepository
	mirror    Mirror
	jwtSecret []byte
	jwtTTL    time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

type AccountDependencies struct {
	Users             repository.UserRepository
	Vehicles          repository.VehicleRepository
	Mirror            Mirror
	JWTSecret         []byte
	JWTExpiration     time.Duration
	SideEffectTimeout time.Duration
	Logger            *zap.Logger
}

func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		users:     deps.Users,
		vehicles:  deps.Vehicles,
		mirror:    deps.Mirror,
		jwtSecret: deps.JWTSecret,
		jwtTTL:    deps.JWTExpiration,
		timeout:   deps.SideEffectTimeout,
		logger:    logger,
	}
}

type LoginResult struct {
	Token  string
	Role   string
	UserID uint
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewUnauthorizedError("Invalid credentials")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if !auth.CheckPasswordHash(password, user.Password) {
		return nil, apperrors.NewUnauthorizedError("Invalid credentials")
	}

	token, err := auth.GenerateJWT(s.jwtSecret, s.jwtTTL, user.ID, user.Username, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, Role: user.Role, UserID: user.ID}, nil
}

type NewUser struct {
	Username string
	Email    string
	Password string
	Keyword  string
}

// CreateUser registers a regular (non-admin) user.
func (s *AccountService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("Username, email and password are required")
	}

	exists, err := s.users.Exists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if exists {
		return nil, apperrors.NewConflictError("User already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
		Role:     models.RoleUser,
		Keyword:  in.Keyword,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	s.logger.Info("User created", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// DeleteUser removes a user with their vehicles and history. Admins cannot delete themselves.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, userID uint) error {
	if actorID == userID {
		return apperrors.NewValidationError("You cannot delete your own user")
	}
	vehicleIDs, err := s.users.Delete(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError("User not found")
	}
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	for _, id := range vehicleIDs {
		s.forgetMirror(ctx, id)
	}
	s.logger.Info("User deleted", zap.Uint("user_id", userID), zap.Int("vehicles", len(vehicleIDs)))
	return nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return users, nil
}

// UserUpdate is an admin edit of a user. Nil fields keep their stored value;
// an empty Password keeps the current one.
type UserUpdate struct {
	Username *string
	Email    *string
	Role     *string
	Keyword  *string
	Password string
}

// UpdateUser edits a user, including promotion to admin and password reset.
// Admins cannot drop their own admin role.
func (s *AccountService) UpdateUser(ctx context.Context, actorID, userID uint, in UserUpdate) (*models.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		if blank(*in.Username) {
			return nil, apperrors.NewValidationError("Username cannot be empty")
		}
		user.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		if blank(*in.Email) {
			return nil, apperrors.NewValidationError("Email cannot be empty")
		}
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Role != nil {
		role := strings.TrimSpace(*in.Role)
		if role != models.RoleUser && role != models.RoleAdmin {
			return nil, apperrors.NewValidationError("Role must be user or admin")
		}
		if actorID == userID && role != models.RoleAdmin {
			return nil, apperrors.NewValidationError("You cannot remove your own admin role")
		}
		user.Role = role
	}
	if in.Keyword != nil {
		user.Keyword = *in.Keyword
	}

	taken, err := s.users.Taken(ctx, user.Username, user.Email, user.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if taken {
		return nil, apperrors.NewConflictError("User already exists")
	}

	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.Password = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	s.logger.Info("User updated", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

func (s *AccountService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	return s.findUser(ctx, userID)
}

// ProfileUpdate is a self-service edit. The password changes only when one of
// the password fields is set.
type ProfileUpdate struct {
	Keyword         *string
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// UpdateProfile changes the caller's keyword and, after checking the current
// password, their password.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Keyword != nil {
		user.Keyword = *in.Keyword
	}

	if in.OldPassword != "" || in.NewPassword != "" || in.ConfirmPassword != "" {
		if in.OldPassword == "" {
			return nil, apperrors.NewValidationError("Current password is required to change the password")
		}
		if in.NewPassword != in.ConfirmPassword {
			return nil, apperrors.NewValidationError("New passwords do not match")
		}
		if in.NewPassword == "" {
			return nil, apperrors.NewValidationError("New password cannot be empty")
		}
		if !auth.CheckPasswordHash(in.OldPassword, user.Password) {
			return nil, apperrors.NewValidationError("Current password is incorrect")
		}
		hash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.Password = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return user, nil
}

func (s *AccountService) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := s.vehicles.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return vehicles, nil
}

// VehicleInput is the admin view of a vehicle. Lat, Lng and Status are only
// read by UpdateVehicle. On update a nil DeviceID or DevicePhone keeps the
// stored value and an empty DeviceID unlinks the device.
type VehicleInput struct {
	UserID      uint
	Name        string
	Type        string
	Plate       string
	DeviceID    *string
	DevicePhone *string
	Lat         *float64
	Lng         *float64
	Status      string
}

// CreateVehicle registers a vehicle at the fallback coordinate. Every field,
// including the device id, is required.
func (s *AccountService) CreateVehicle(ctx context.Context, in VehicleInput) (*models.Vehicle, error) {
	if in.UserID == 0 || blank(in.Name) || blank(in.Type) || blank(in.Plate) || in.DeviceID == nil || blank(*in.DeviceID) {
		return nil, apperrors.NewValidationError("All fields are required")
	}
	if err := s.requireUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	deviceID := strings.TrimSpace(*in.DeviceID)
	if err := s.requireFreeDevice(ctx, deviceID, 0); err != nil {
		return nil, err
	}

	vehicle := &models.Vehicle{
		UserID:   in.UserID,
		Name:     in.Name,
		Type:     in.Type,
		Plate:    in.Plate,
		DeviceID: &deviceID,
		Status:   "active",
		Lat:      models.DefaultLat,
		Lng:      models.DefaultLng,
	}
	if in.DevicePhone != nil {
		vehicle.DevicePhone = strings.TrimSpace(*in.DevicePhone)
	}
	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	s.logger.Info("Vehicle created", zap.Uint("vehicle_id", vehicle.ID), zap.String("device_id", deviceID))
	return vehicle, nil
}

// UpdateVehicle edits a vehicle. Blank or omitted fields keep their stored
// value, an explicitly empty device id unlinks the device. The stored speed is reset.
func (s *AccountService) UpdateVehicle(ctx context.Context, vehicleID uint, in VehicleInput) (*models.Vehicle, error) {
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Vehicle not found")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if in.UserID != 0 && in.UserID != vehicle.UserID {
		if err := s.requireUser(ctx, in.UserID); err != nil {
			return nil, err
		}
		vehicle.UserID = in.UserID
	}
	if !blank(in.Name) {
		vehicle.Name = in.Name
	}
	if !blank(in.Type) {
		vehicle.Type = in.Type
	}
	if !blank(in.Plate) {
		vehicle.Plate = in.Plate
	}
	if !blank(in.Status) {
		vehicle.Status = in.Status
	}
	if in.Lat != nil {
		vehicle.Lat = *in.Lat
	}
	if in.Lng != nil {
		vehicle.Lng = *in.Lng
	}

	if in.DevicePhone != nil {
		vehicle.DevicePhone = strings.TrimSpace(*in.DevicePhone)
	}

	switch {
	case in.DeviceID == nil:
	case blank(*in.DeviceID):
		vehicle.DeviceID = nil
	default:
		deviceID := strings.TrimSpace(*in.DeviceID)
		if err := s.requireFreeDevice(ctx, deviceID, vehicle.ID); err != nil {
			return nil, err
		}
		vehicle.DeviceID = &deviceID
	}
	vehicle.Speed = 0

	if err := s.vehicles.Update(ctx, vehicle); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return vehicle, nil
}

func (s *AccountService) DeleteVehicle(ctx context.Context, vehicleID uint) error {
	err := s.vehicles.Delete(ctx, vehicleID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError("Vehicle not found")
	}
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	s.forgetMirror(ctx, vehicleID)
	s.logger.Info("Vehicle deleted", zap.Uint("vehicle_id", vehicleID))
	return nil
}

func (s *AccountService) findUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("User not found")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return user, nil
}

func (s *AccountService) requireUser(ctx context.Context, userID uint) error {
	_, err := s.findUser(ctx, userID)
	return err
}

func (s *AccountService) requireFreeDevice(ctx context.Context, deviceID string, vehicleID uint) error {
	taken, err := s.vehicles.DeviceIDTaken(ctx, deviceID, vehicleID)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if taken {
		return apperrors.NewConflictError("Device ID already in use")
	}
	return nil
}

func (s *AccountService) forgetMirror(ctx context.Context, vehicleID uint) {
	if s.mirror == nil {
		return
	}
	runSideEffect(ctx, s.logger, s.timeout, "mirror cleanup", []zap.Field{zap.Uint("vehicle_id", vehicleID)},
		func(ctx context.Context) error {
			return s.mirror.DeleteVehicle(ctx, vehicleID)
		},
	)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
