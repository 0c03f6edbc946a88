package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/models"
	"github.com/aidalert/aidalert/pkg/crypto"
	apperrors "github.com/aidalert/aidalert/pkg/errors"
)

// RegisterInput carries the attributes accepted at account creation.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Phone     string
	Address   string
	City      string
}

// UpdateProfileInput carries the self-service profile fields.
type UpdateProfileInput struct {
	FirstName        *string
	LastName         *string
	Phone            *string
	Address          *string
	City             *string
	EmergencyContact *string
	EmergencyPhone   *string
	BloodType        *string
}

// UserService manages account lifecycle and credentials.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Register creates a new account with a hashed password. Self-service
// registration cannot grant the admin role.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.NewBadRequest("username, email and password are required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	role := defaultIfEmpty(input.Role, models.RoleUser)
	if !models.ValidRole(role) || role == models.RoleAdmin {
		return nil, apperrors.NewBadRequest("invalid role")
	}
	if input.Phone != "" && !isTenDigitPhone(input.Phone) {
		return nil, apperrors.NewBadRequest("Please enter a valid 10-digit phone number")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := models.User{
		Username:  input.Username,
		Email:     input.Email,
		Password:  hash,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Role:      role,
		Phone:     input.Phone,
		Address:   strings.TrimSpace(input.Address),
		City:      strings.TrimSpace(input.City),
		IsActive:  true,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.New("USERNAME_TAKEN", "Username or email already registered", 409)
		}
		return nil, apperrors.ErrPersistence.WithInternal(fmt.Errorf("create user: %w", err))
	}
	return &user, nil
}

// Authenticate verifies credentials by username or email and stamps the
// last login time.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !user.IsActive {
		return nil, apperrors.ErrForbidden
	}
	if !crypto.VerifyPassword(user.Password, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", &now).Error; err != nil {
		return nil, fmt.Errorf("user service: stamp login: %w", err)
	}
	return &user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies the provided profile fields. Nil pointers leave
// the stored value untouched.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	setString := func(column string, value *string) {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}
	setString("first_name", input.FirstName)
	setString("last_name", input.LastName)
	setString("address", input.Address)
	setString("city", input.City)
	setString("emergency_contact", input.EmergencyContact)
	setString("blood_type", input.BloodType)

	if input.Phone != nil {
		if *input.Phone != "" && !isTenDigitPhone(*input.Phone) {
			return nil, apperrors.NewBadRequest("Please enter a valid 10-digit phone number")
		}
		updates["phone"] = *input.Phone
	}
	if input.EmergencyPhone != nil {
		if *input.EmergencyPhone != "" && !isTenDigitPhone(*input.EmergencyPhone) {
			return nil, apperrors.NewBadRequest("Please enter a valid 10-digit phone number")
		}
		updates["emergency_phone"] = *input.EmergencyPhone
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.ErrPersistence.WithInternal(fmt.Errorf("update profile: %w", err))
	}
	return s.Get(ctx, userID)
}

// ChangePassword rotates a user's password after re-verifying the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	ctx = ensureContext(ctx)

	if len(newPassword) < 8 {
		return apperrors.NewBadRequest("password must be at least 8 characters")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(user.Password, oldPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return apperrors.ErrPersistence.WithInternal(fmt.Errorf("update password: %w", err))
	}
	return nil
}

// SetPassword overwrites a user's password without the old-password check.
// Reserved for the verified password-reset flow.
func (s *UserService) SetPassword(ctx context.Context, userID, newPassword string) error {
	ctx = ensureContext(ctx)

	if len(newPassword) < 8 {
		return apperrors.NewBadRequest("password must be at least 8 characters")
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password", hash)
	if result.Error != nil {
		return apperrors.ErrPersistence.WithInternal(fmt.Errorf("set password: %w", result.Error))
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindByEmail returns the user registered under an email address.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("user service: load user by email: %w", err)
	}
	return &user, nil
}

// List returns users, optionally filtered by role, for administrative views.
func (s *UserService) List(ctx context.Context, role string) ([]models.User, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}
