package middleware

import (
	"log/slog"

	"github.com/ellavondegurechaff/snapquest/web/handlers"
	webservices "github.com/ellavondegurechaff/snapquest/web/services"
	"github.com/ellavondegurechaff/snapquest/web/utils"
	"github.com/gofiber/fiber/v2"
)

// DeviceCookieName holds the opaque per-browser identity token.
const DeviceCookieName = "snapquest_device"

const deviceCookieMaxAge = 365 * 24 * 60 * 60 // one year

// DeviceContext resolves the request's device token to a device row,
// minting token and row on first sight, and stores both the device and any
// valid session in the request context. Calling it twice with the same
// token always resolves the same device.
func DeviceContext(webApp *handlers.WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(DeviceCookieName)
		if token == "" {
			minted, err := webservices.MintDeviceToken()
			if err != nil {
				slog.Error("Failed to mint device token", slog.Any("error", err))
				return utils.SendInternalServerError(c, "Failed to establish device identity")
			}
			token = minted

			c.Cookie(&fiber.Cookie{
				Name:     DeviceCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   deviceCookieMaxAge,
				HTTPOnly: true,
				SameSite: "Lax",
			})
		}

		device, err := webApp.Devices.GetOrCreate(c.Context(), token)
		if err != nil {
			slog.Error("Failed to resolve device",
				slog.Any("error", err),
				slog.String("ip", utils.GetIPAddress(c)))
			return utils.SendInternalServerError(c, "Failed to resolve device identity")
		}
		c.Locals("device", device)

		if session, err := webApp.GetSession(c); err == nil && session != nil {
			c.Locals("user", session)
		}

		return c.Next()
	}
}

// AuthRequired ensures the visitor is logged in. Browsers get bounced to
// the landing page rather than an error.
func AuthRequired(webApp *handlers.WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := webApp.GetSession(c)
		if err != nil || session == nil || session.AccountID == 0 {
			slog.Debug("Auth required: no valid session", slog.String("path", c.Path()))
			return c.Redirect("/", fiber.StatusSeeOther)
		}

		c.Locals("user", session)

		return c.Next()
	}
}

// AdminRequired ensures the logged-in account carries the admin role.
// Admin URLs fail hard with 403, they are never silently redirected.
// Runs behind AuthRequired, which put the session in the request context.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := utils.ExtractUserSession(c)
		if !ok || session == nil {
			slog.Warn("Admin required: no user in context", slog.String("path", c.Path()))
			return utils.SendForbidden(c, "Access denied")
		}

		if !session.IsAdmin {
			slog.Warn("Admin required: user lacks admin role",
				slog.Int64("account_id", session.AccountID),
				slog.String("username", session.Username))
			return utils.SendForbidden(c, "Admin access required")
		}

		return c.Next()
	}
}
