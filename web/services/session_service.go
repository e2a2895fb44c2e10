package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/snapquest/web/config"
	"github.com/ellavondegurechaff/snapquest/web/models"
	"github.com/gofiber/fiber/v2"
)

const (
	SessionCookieName = "snapquest_session"
	sessionLifetime   = 24 * time.Hour
)

// SessionService handles user session management
type SessionService struct {
	config *config.WebAppConfig
}

// NewSessionService creates a new session service
func NewSessionService(cfg *config.WebAppConfig) *SessionService {
	return &SessionService{
		config: cfg,
	}
}

// CreateSession creates a new user session and sets the session cookie
func (s *SessionService) CreateSession(c *fiber.Ctx, userSession *models.UserSession) error {
	if userSession.ExpiresAt.IsZero() {
		userSession.ExpiresAt = time.Now().Add(sessionLifetime)
	}

	sessionData, err := json.Marshal(userSession)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	signedSession, err := s.signData(sessionData)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    signedSession,
		Path:     "/",
		MaxAge:   int(sessionLifetime / time.Second),
		Secure:   s.config.Environment == "production",
		HTTPOnly: true,
		SameSite: "Lax",
	})

	slog.Info("Session created for user",
		slog.Int64("account_id", userSession.AccountID),
		slog.String("username", userSession.Username),
		slog.Bool("is_admin", userSession.IsAdmin))

	return nil
}

// GetSession retrieves and validates the user session from the request
func (s *SessionService) GetSession(c *fiber.Ctx) (*models.UserSession, error) {
	sessionCookie := c.Cookies(SessionCookieName)
	if sessionCookie == "" {
		return nil, fmt.Errorf("no session cookie found")
	}

	sessionData, err := s.verifyAndDecodeData(sessionCookie)
	if err != nil {
		return nil, fmt.Errorf("invalid session signature: %w", err)
	}

	var userSession models.UserSession
	if err := json.Unmarshal(sessionData, &userSession); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if time.Now().After(userSession.ExpiresAt) {
		s.DestroySession(c)
		return nil, fmt.Errorf("session expired")
	}

	return &userSession, nil
}

// DestroySession removes the session cookie and invalidates the session
func (s *SessionService) DestroySession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.config.Environment == "production",
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// RefreshSession extends the session expiration time
func (s *SessionService) RefreshSession(c *fiber.Ctx, userSession *models.UserSession) error {
	userSession.ExpiresAt = time.Now().Add(sessionLifetime)
	return s.CreateSession(c, userSession)
}

// signData signs data using HMAC-SHA256
func (s *SessionService) signData(data []byte) (string, error) {
	if s.config.SessionKey() == "" {
		return "", fmt.Errorf("session key not configured")
	}

	h := hmac.New(sha256.New, []byte(s.config.SessionKey()))
	h.Write(data)
	signature := h.Sum(nil)

	combined := append(data, signature...)

	return base64.URLEncoding.EncodeToString(combined), nil
}

// verifyAndDecodeData verifies the signature and returns the original data
func (s *SessionService) verifyAndDecodeData(encodedData string) ([]byte, error) {
	if s.config.SessionKey() == "" {
		return nil, fmt.Errorf("session key not configured")
	}

	combined, err := base64.URLEncoding.DecodeString(encodedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}

	// Signature is the trailing 32 bytes
	if len(combined) < sha256.Size {
		return nil, fmt.Errorf("invalid data length")
	}

	data := combined[:len(combined)-sha256.Size]
	receivedSignature := combined[len(combined)-sha256.Size:]

	h := hmac.New(sha256.New, []byte(s.config.SessionKey()))
	h.Write(data)
	expectedSignature := h.Sum(nil)

	if !hmac.Equal(receivedSignature, expectedSignature) {
		return nil, fmt.Errorf("signature verification failed")
	}

	return data, nil
}
