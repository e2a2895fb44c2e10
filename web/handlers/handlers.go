package handlers

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ellavondegurechaff/snapquest/snapquest/database"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/repositories"
	coreservices "github.com/ellavondegurechaff/snapquest/snapquest/services"
	"github.com/ellavondegurechaff/snapquest/web/config"
	webmodels "github.com/ellavondegurechaff/snapquest/web/models"
	webservices "github.com/ellavondegurechaff/snapquest/web/services"
	"github.com/ellavondegurechaff/snapquest/web/utils"
	"github.com/gofiber/fiber/v2"
)

// WebApp carries everything the handlers need.
type WebApp struct {
	Config *config.WebAppConfig
	DB     *database.DB

	Devices  repositories.DeviceRepository
	Accounts repositories.AccountRepository
	Photos   repositories.PhotoRepository
	Quests   repositories.QuestRepository
	Progress repositories.ProgressRepository

	SessionService    *webservices.SessionService
	AuthService       *webservices.AuthService
	UploadService     *webservices.UploadService
	ModerationService *webservices.ModerationService

	Version string
	Commit  string
}

// GetSession retrieves the current user session from the request
func (app *WebApp) GetSession(c *fiber.Ctx) (*webmodels.UserSession, error) {
	return app.SessionService.GetSession(c)
}

// HealthCheck returns a fixed OK for liveness probing
func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendString("OK")
	}
}

// Feed renders the public landing feed: approved photos plus the global
// reward progress.
func Feed(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()

		photos, err := webApp.Photos.ListGallery(ctx)
		if err != nil {
			slog.Error("Failed to load gallery", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load gallery")
		}

		progress, err := webApp.rewardProgress(c)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to load progress")
		}

		return utils.SendSuccess(c, fiber.Map{
			"photos":   photos,
			"progress": progress,
		}, "Gallery feed")
	}
}

// AppFeed renders the authenticated feed: gallery, active quests and the
// visitor's view of the global progress.
func AppFeed(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()

		photos, err := webApp.Photos.ListGallery(ctx)
		if err != nil {
			slog.Error("Failed to load gallery", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load gallery")
		}

		quests, err := webApp.Quests.ListActive(ctx)
		if err != nil {
			slog.Error("Failed to load active quests", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load quests")
		}

		progress, err := webApp.rewardProgress(c)
		if err != nil {
			return utils.SendInternalServerError(c, "Failed to load progress")
		}

		return utils.SendSuccess(c, fiber.Map{
			"photos":   photos,
			"quests":   quests,
			"progress": progress,
		}, "App feed")
	}
}

func (app *WebApp) rewardProgress(c *fiber.Ctx) (coreservices.TierProgress, error) {
	ctx := c.Context()

	total, err := app.Progress.GetTotal(ctx)
	if err != nil {
		slog.Error("Failed to read global progress", slog.Any("error", err))
		return coreservices.TierProgress{}, err
	}

	tiers, err := app.Progress.ListTiers(ctx)
	if err != nil {
		slog.Error("Failed to read reward tiers", slog.Any("error", err))
		return coreservices.TierProgress{}, err
	}

	return coreservices.TierProgressFor(total, tiers), nil
}

// AuthorizePage describes the passphrase challenge
func AuthorizePage(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, fiber.Map{
			"challenge": "passphrase",
		}, "Enter the shared passphrase to enable uploads from this device")
	}
}

// Authorize checks the shared passphrase and flips the device's upload
// permission on success.
func Authorize(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		device, ok := utils.ExtractDevice(c)
		if !ok {
			return utils.SendInternalServerError(c, "No device identity")
		}

		passphrase := c.FormValue("passphrase")
		if passphrase == "" {
			return utils.SendBadRequest(c, "Missing passphrase", nil)
		}

		if err := webApp.AuthService.AuthorizeDevice(c.Context(), device.Token, passphrase); err != nil {
			if errors.Is(err, webservices.ErrBadPassphrase) {
				return utils.SendForbidden(c, "Incorrect passphrase")
			}
			slog.Error("Device authorization failed", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Authorization failed")
		}

		return utils.SendSuccess(c, nil, "Device authorized for uploads")
	}
}

// Login verifies credentials, binds the device token to the account and
// sets the session cookie.
func Login(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := strings.TrimSpace(c.FormValue("username"))
		password := c.FormValue("password")
		if username == "" || password == "" {
			return utils.SendBadRequest(c, "Missing username or password", nil)
		}

		var deviceToken string
		if device, ok := utils.ExtractDevice(c); ok {
			deviceToken = device.Token
		}

		account, err := webApp.AuthService.Login(c.Context(), username, password, deviceToken)
		if err != nil {
			if errors.Is(err, webservices.ErrInvalidCredentials) {
				return utils.SendUnauthorized(c, "Invalid username or password")
			}
			slog.Error("Login failed", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Login failed")
		}

		session := &webmodels.UserSession{
			AccountID: account.ID,
			Username:  account.Username,
			IsAdmin:   account.IsAdmin,
		}
		if err := webApp.SessionService.CreateSession(c, session); err != nil {
			slog.Error("Failed to create session", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to create session")
		}

		return utils.SendSuccess(c, fiber.Map{
			"username": account.Username,
			"is_admin": account.IsAdmin,
		}, "Logged in")
	}
}

// Logout destroys the session and bounces to the landing page
func Logout(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		webApp.SessionService.DestroySession(c)
		return c.Redirect("/", fiber.StatusSeeOther)
	}
}

// Upload runs the intake pipeline for a multipart image. Visibility and
// scoring happen later, at moderation time.
func Upload(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		device, ok := utils.ExtractDevice(c)
		if !ok {
			return utils.SendInternalServerError(c, "No device identity")
		}

		accountID, permitted, err := webApp.resolveUploader(c, device)
		if err != nil {
			slog.Error("Failed to resolve uploader", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to resolve upload permission")
		}
		if !permitted {
			return utils.SendForbidden(c, "This device is not authorized to upload")
		}

		fileHeader, err := c.FormFile("photo")
		if err != nil {
			return utils.SendBadRequest(c, "Missing photo upload", nil)
		}
		if fileHeader.Size > webservices.MaxUploadBytes {
			return utils.SendBadRequest(c, "Image exceeds the 5 MiB upload limit", nil)
		}

		file, err := fileHeader.Open()
		if err != nil {
			return utils.SendBadRequest(c, "Failed to open uploaded file", nil)
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, webservices.MaxUploadBytes+1))
		if err != nil {
			return utils.SendBadRequest(c, "Failed to read uploaded file", nil)
		}

		req := webservices.UploadRequest{
			Data:        data,
			ContentType: fileHeader.Header.Get("Content-Type"),
			AccountID:   accountID,
			DeviceToken: device.Token,
			QuestID:     webservices.ParseQuestID(c.FormValue("quest_id")),
		}

		photo, err := webApp.UploadService.Submit(c.Context(), req)
		if err != nil {
			if webservices.IsClientError(err) {
				return utils.SendBadRequest(c, err.Error(), nil)
			}
			slog.Error("Upload failed", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Upload failed")
		}

		return utils.SendCreated(c, fiber.Map{
			"pending_id": photo.ID,
			"url":        photo.URL,
		}, "Photo uploaded, awaiting review")
	}
}

// resolveUploader decides who owns an upload and whether it is allowed.
// A logged-in session wins; otherwise a device bound to an account or an
// explicitly authorized device may upload. A failed binding lookup is a
// dependency error, not a denial.
func (app *WebApp) resolveUploader(c *fiber.Ctx, device *models.Device) (*int64, bool, error) {
	if session, ok := utils.ExtractUserSession(c); ok && session.AccountID != 0 {
		id := session.AccountID
		return &id, true, nil
	}

	account, err := app.Accounts.GetByDeviceToken(c.Context(), device.Token)
	if err == nil {
		id := account.ID
		return &id, true, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, false, err
	}

	if device.CanUpload {
		return nil, true, nil
	}

	return nil, false, nil
}

// AdminDashboard lists the pending queue, accounts, quests and progress
func AdminDashboard(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()

		pending, err := webApp.ModerationService.Pending(ctx)
		if err != nil {
			slog.Error("Failed to list pending photos", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to list pending photos")
		}

		accounts, err := webApp.Accounts.List(ctx)
		if err != nil {
			slog.Error("Failed to list accounts", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to list accounts")
		}

		quests, err := webApp.Quests.ListAll(ctx)
		if err != nil {
			slog.Error("Failed to list quests", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to list quests")
		}

		total, err := webApp.Progress.GetTotal(ctx)
		if err != nil {
			slog.Error("Failed to read global progress", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to read progress")
		}

		return utils.SendSuccess(c, fiber.Map{
			"pending":  pending,
			"accounts": accounts,
			"quests":   quests,
			"total":    total,
		}, "Admin dashboard")
	}
}

// ApprovePending promotes a pending photo and credits quest points
func ApprovePending(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return utils.SendBadRequest(c, "Invalid pending photo id", nil)
		}

		result, err := webApp.ModerationService.Approve(c.Context(), int64(id))
		if err != nil {
			if repositories.IsNotFound(err) {
				return utils.SendNotFound(c, "Pending photo not found")
			}
			slog.Error("Approval failed", slog.Int("pending_id", id), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Approval failed")
		}

		return utils.SendSuccess(c, fiber.Map{
			"gallery_id":     result.Photo.ID,
			"points_awarded": result.PointsAwarded,
		}, "Photo approved")
	}
}

// RejectPending discards a pending photo
func RejectPending(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return utils.SendBadRequest(c, "Invalid pending photo id", nil)
		}

		if err := webApp.ModerationService.Reject(c.Context(), int64(id)); err != nil {
			if repositories.IsNotFound(err) {
				return utils.SendNotFound(c, "Pending photo not found")
			}
			slog.Error("Rejection failed", slog.Int("pending_id", id), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Rejection failed")
		}

		return utils.SendSuccess(c, nil, "Photo rejected")
	}
}

// GalleryPhotoDelete removes a photo from the public gallery
func GalleryPhotoDelete(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return utils.SendBadRequest(c, "Invalid photo id", nil)
		}

		if err := webApp.ModerationService.DeleteGalleryPhoto(c.Context(), int64(id)); err != nil {
			if repositories.IsNotFound(err) {
				return utils.SendNotFound(c, "Gallery photo not found")
			}
			slog.Error("Gallery delete failed", slog.Int("photo_id", id), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Delete failed")
		}

		return utils.SendSuccess(c, nil, "Photo deleted")
	}
}

// UsersCreate creates an account (admin only)
func UsersCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := strings.TrimSpace(c.FormValue("username"))
		password := c.FormValue("password")
		isAdmin := c.FormValue("is_admin") == "true"

		if username == "" || password == "" {
			return utils.SendBadRequest(c, "Missing username or password", nil)
		}

		hash, err := webservices.HashPassword(password)
		if err != nil {
			slog.Error("Failed to hash password", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to create user")
		}

		account := &models.Account{
			Username:     username,
			PasswordHash: hash,
			IsAdmin:      isAdmin,
		}
		if err := webApp.Accounts.Create(c.Context(), account); err != nil {
			if repositories.IsConflict(err) {
				return utils.SendConflict(c, "Username already taken", nil)
			}
			slog.Error("Failed to create account", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to create user")
		}

		return utils.SendCreated(c, fiber.Map{
			"id":       account.ID,
			"username": account.Username,
			"is_admin": account.IsAdmin,
		}, "User created")
	}
}

// UsersDelete removes an account and everything it owns
func UsersDelete(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return utils.SendBadRequest(c, "Invalid user id", nil)
		}

		if err := webApp.Accounts.Delete(c.Context(), int64(id)); err != nil {
			if repositories.IsNotFound(err) {
				return utils.SendNotFound(c, "User not found")
			}
			slog.Error("Failed to delete account", slog.Int("account_id", id), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to delete user")
		}

		return utils.SendSuccess(c, nil, "User deleted")
	}
}

// QuestsCreate defines a new point-bearing quest (admin only)
func QuestsCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		title := strings.TrimSpace(c.FormValue("title"))
		description := strings.TrimSpace(c.FormValue("description"))
		questType := c.FormValue("type")

		if title == "" || questType == "" {
			return utils.SendBadRequest(c, "Missing title or type", nil)
		}
		if !models.ValidQuestType(questType) {
			return utils.SendBadRequest(c, "Quest type must be daily, special or weekly", nil)
		}

		points, err := strconv.ParseInt(c.FormValue("points"), 10, 64)
		if err != nil || points < 0 {
			return utils.SendBadRequest(c, "Points must be a non-negative number", nil)
		}

		quest := &models.Quest{
			Title:       title,
			Description: description,
			Type:        questType,
			Points:      points,
			Active:      true,
		}

		startsAt, startErr := parseQuestDate(c.FormValue("starts_at"))
		endsAt, endErr := parseQuestDate(c.FormValue("ends_at"))
		if startErr != nil || endErr != nil {
			return utils.SendBadRequest(c, "Dates must be YYYY-MM-DD or RFC3339", nil)
		}

		if questType == models.QuestTypeWeekly {
			if startsAt == nil || endsAt == nil {
				return utils.SendBadRequest(c, "Weekly quests need starts_at and ends_at", nil)
			}
			if endsAt.Before(*startsAt) {
				return utils.SendBadRequest(c, "ends_at must not precede starts_at", nil)
			}
			quest.StartsAt = startsAt
			quest.EndsAt = endsAt
		} else if startsAt != nil || endsAt != nil {
			return utils.SendBadRequest(c, "Only weekly quests carry an active window", nil)
		}

		if err := webApp.Quests.Create(c.Context(), quest); err != nil {
			slog.Error("Failed to create quest", slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to create quest")
		}

		return utils.SendCreated(c, fiber.Map{
			"id":     quest.ID,
			"title":  quest.Title,
			"type":   quest.Type,
			"points": quest.Points,
			"active": quest.Active,
		}, "Quest created")
	}
}

// parseQuestDate accepts an empty value, a plain date or a full RFC3339
// timestamp.
func parseQuestDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
