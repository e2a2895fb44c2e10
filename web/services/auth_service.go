package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/repositories"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrBadPassphrase      = errors.New("incorrect passphrase")
)

// AuthService owns login, password hashing, and the shared-passphrase
// device authorization gate.
type AuthService struct {
	accounts   repositories.AccountRepository
	devices    repositories.DeviceRepository
	passphrase string
}

func NewAuthService(accounts repositories.AccountRepository, devices repositories.DeviceRepository, passphrase string) *AuthService {
	return &AuthService{
		accounts:   accounts,
		devices:    devices,
		passphrase: passphrase,
	}
}

// MintDeviceToken returns a fresh 256-bit random token for a browser that
// arrived without one.
func MintDeviceToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to mint device token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies credentials and binds the calling device token to the
// account. Binding is append-if-absent; it never steals the token from an
// account that bound it earlier.
func (s *AuthService) Login(ctx context.Context, username, password, deviceToken string) (*models.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if deviceToken != "" {
		if err := s.accounts.BindDevice(ctx, account.ID, deviceToken); err != nil {
			return nil, err
		}
	}

	slog.Info("User logged in",
		slog.Int64("account_id", account.ID),
		slog.String("username", account.Username))

	return account, nil
}

// AuthorizeDevice checks the shared admin passphrase in constant time and,
// on success, permanently flips the device's upload permission.
func (s *AuthService) AuthorizeDevice(ctx context.Context, deviceToken, passphrase string) error {
	if s.passphrase == "" {
		return ErrBadPassphrase
	}
	if subtle.ConstantTimeCompare([]byte(passphrase), []byte(s.passphrase)) != 1 {
		return ErrBadPassphrase
	}

	if err := s.devices.SetUploadPermission(ctx, deviceToken, true); err != nil {
		return err
	}

	slog.Info("Device authorized for uploads",
		slog.String("device_token", tokenPrefix(deviceToken)))

	return nil
}

// tokenPrefix truncates a device token for logging. Tokens normally run 64
// hex chars, but the cookie value is client-supplied and may be shorter.
func tokenPrefix(token string) string {
	if len(token) > 8 {
		return token[:8] + "…"
	}
	return token
}
