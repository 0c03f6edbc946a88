package services

import (
	"context"
	cryptoRand "crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aidalert/aidalert/internal/models"
	"github.com/aidalert/aidalert/pkg/crypto"
	apperrors "github.com/aidalert/aidalert/pkg/errors"
	"github.com/aidalert/aidalert/pkg/logger"
)

const (
	resetCodeTTL    = 15 * time.Minute
	resetWindowTTL  = 10 * time.Minute
	resetCodeDigits = otp.DigitsSix
)

// PasswordResetService issues, verifies, and consumes one-time reset codes.
// Codes are stored hashed; the plaintext exists only in the delivery path.
type PasswordResetService struct {
	db    *gorm.DB
	users *UserService
	now   func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(db *gorm.DB, users *UserService) (*PasswordResetService, error) {
	if db == nil {
		return nil, errors.New("password reset service: db is required")
	}
	if users == nil {
		return nil, errors.New("password reset service: user service is required")
	}
	return &PasswordResetService{db: db, users: users, now: time.Now}, nil
}

// RequestReset issues a fresh reset code for the account registered under
// the email. The code is returned for delivery; an unknown email returns
// an empty code with no error so the endpoint cannot be used to probe
// which addresses exist.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (string, error) {
	ctx = ensureContext(ctx)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WithModule("password-reset").Info("reset requested for unknown email")
			return "", nil
		}
		return "", err
	}

	code, err := generateResetCode()
	if err != nil {
		return "", fmt.Errorf("password reset service: generate code: %w", err)
	}

	hash, err := crypto.HashPassword(code)
	if err != nil {
		return "", fmt.Errorf("password reset service: hash code: %w", err)
	}

	now := s.now().UTC()
	token := models.PasswordResetToken{
		UserID:    user.ID,
		CodeHash:  hash,
		ExpiresAt: now.Add(resetCodeTTL),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A new request supersedes any outstanding codes.
		if err := tx.Where("user_id = ? AND consumed_at IS NULL", user.ID).
			Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("invalidate previous codes: %w", err)
		}
		return tx.Create(&token).Error
	})
	if err != nil {
		return "", apperrors.ErrPersistence.WithInternal(err)
	}

	logger.WithModule("password-reset").Info("reset code issued",
		zap.String("user_id", user.ID),
	)
	return code, nil
}

// VerifyCode checks a submitted code for the email's account and marks the
// token verified, opening a short window in which the password may be set.
func (s *PasswordResetService) VerifyCode(ctx context.Context, email, code string) error {
	ctx = ensureContext(ctx)

	code = strings.TrimSpace(code)
	if code == "" {
		return apperrors.NewBadRequest("reset code is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrInvalidCredentials
		}
		return err
	}

	token, err := s.latestToken(ctx, user.ID)
	if err != nil {
		return err
	}
	if !token.Usable(s.now().UTC()) || !crypto.VerifyPassword(token.CodeHash, code) {
		return apperrors.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(token).Update("verified_at", &now).Error; err != nil {
		return apperrors.ErrPersistence.WithInternal(fmt.Errorf("mark verified: %w", err))
	}
	return nil
}

// CompleteReset sets the new password for an account whose latest code was
// verified within the reset window, then consumes the token.
func (s *PasswordResetService) CompleteReset(ctx context.Context, email, newPassword string) error {
	ctx = ensureContext(ctx)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrInvalidCredentials
		}
		return err
	}

	token, err := s.latestToken(ctx, user.ID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if token.ConsumedAt != nil || token.VerifiedAt == nil ||
		now.Sub(*token.VerifiedAt) > resetWindowTTL {
		return apperrors.ErrInvalidCredentials
	}

	if err := s.users.SetPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(token).Update("consumed_at", &now).Error; err != nil {
		return apperrors.ErrPersistence.WithInternal(fmt.Errorf("consume token: %w", err))
	}

	logger.WithModule("password-reset").Info("password reset completed",
		zap.String("user_id", user.ID),
	)
	return nil
}

func (s *PasswordResetService) latestToken(ctx context.Context, userID string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("password reset service: load token: %w", err)
	}
	return &token, nil
}

// generateResetCode derives a six-digit code from a throwaway random
// secret via HOTP, which keeps codes uniformly distributed over the
// digit space.
func generateResetCode() (string, error) {
	buf := make([]byte, 20)
	if _, err := cryptoRand.Read(buf); err != nil {
		return "", err
	}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)

	return hotp.GenerateCodeCustom(secret, 0, hotp.ValidateOpts{
		Digits:    resetCodeDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
}
