package middleware

import (
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/snapquest/web/utils"
	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware logs HTTP requests in a structured format
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)

		statusCode := c.Response().StatusCode()
		logLevel := slog.LevelInfo
		if statusCode >= 400 && statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if statusCode >= 500 {
			logLevel = slog.LevelError
		}

		logger := slog.With(
			slog.String("type", "http"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", statusCode),
			slog.Duration("duration", duration),
			slog.String("ip", utils.GetIPAddress(c)),
		)

		if session, ok := utils.ExtractUserSession(c); ok {
			logger = logger.With(
				slog.Int64("account_id", session.AccountID),
				slog.String("username", session.Username),
			)
		}

		if err != nil {
			logger = logger.With(slog.String("error", err.Error()))
		}

		message := "HTTP request processed"
		if err != nil {
			message = "HTTP request failed"
		}

		logger.Log(c.Context(), logLevel, message)

		return err
	}
}

// AccessLogMiddleware logs access attempts for sensitive admin operations
func AccessLogMiddleware(operation string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accountID int64
		var username string
		if session, ok := utils.ExtractUserSession(c); ok {
			accountID = session.AccountID
			username = session.Username
		}

		slog.Info("Admin operation attempted",
			slog.String("operation", operation),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", utils.GetIPAddress(c)),
			slog.Int64("account_id", accountID),
			slog.String("username", username),
		)

		return c.Next()
	}
}
