package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ellavondegurechaff/snapquest/snapquest"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/repositories"
	coreservices "github.com/ellavondegurechaff/snapquest/snapquest/services"
	"github.com/ellavondegurechaff/snapquest/web/config"
	"github.com/ellavondegurechaff/snapquest/web/handlers"
	"github.com/ellavondegurechaff/snapquest/web/middleware"
	webmodels "github.com/ellavondegurechaff/snapquest/web/models"
	webservices "github.com/ellavondegurechaff/snapquest/web/services"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type stubDevices struct {
	canUpload bool
}

func (s *stubDevices) GetByToken(ctx context.Context, token string) (*models.Device, error) {
	return &models.Device{Token: token, CanUpload: s.canUpload}, nil
}

func (s *stubDevices) Create(ctx context.Context, token string) (*models.Device, error) {
	return &models.Device{Token: token, CanUpload: s.canUpload}, nil
}

func (s *stubDevices) GetOrCreate(ctx context.Context, token string) (*models.Device, error) {
	return &models.Device{Token: token, CanUpload: s.canUpload}, nil
}

func (s *stubDevices) SetUploadPermission(ctx context.Context, token string, allowed bool) error {
	s.canUpload = allowed
	return nil
}

type stubAccounts struct {
	deviceLookupErr error
}

func (s *stubAccounts) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return nil, &repositories.NotFoundError{Entity: "account", ID: id}
}

func (s *stubAccounts) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return nil, &repositories.NotFoundError{Entity: "account"}
}

func (s *stubAccounts) Create(ctx context.Context, account *models.Account) error { return nil }

func (s *stubAccounts) Delete(ctx context.Context, id int64) error { return nil }

func (s *stubAccounts) List(ctx context.Context) ([]*models.Account, error) {
	return []*models.Account{}, nil
}

func (s *stubAccounts) BindDevice(ctx context.Context, accountID int64, deviceToken string) error {
	return nil
}

func (s *stubAccounts) GetByDeviceToken(ctx context.Context, deviceToken string) (*models.Account, error) {
	if s.deviceLookupErr != nil {
		return nil, s.deviceLookupErr
	}
	return nil, &repositories.NotFoundError{Entity: "account"}
}

type stubPhotos struct {
	pending []*models.PendingPhoto
}

func (s *stubPhotos) CreatePending(ctx context.Context, photo *models.PendingPhoto) error {
	photo.ID = int64(len(s.pending) + 1)
	s.pending = append(s.pending, photo)
	return nil
}

func (s *stubPhotos) GetPending(ctx context.Context, id int64) (*models.PendingPhoto, error) {
	return nil, &repositories.NotFoundError{Entity: "pending photo", ID: id}
}

func (s *stubPhotos) ListPending(ctx context.Context) ([]*models.PendingPhoto, error) {
	return s.pending, nil
}

func (s *stubPhotos) Approve(ctx context.Context, id int64) (*repositories.ApprovalResult, error) {
	return nil, &repositories.NotFoundError{Entity: "pending photo", ID: id}
}

func (s *stubPhotos) DeletePending(ctx context.Context, id int64) (*models.PendingPhoto, error) {
	return nil, &repositories.NotFoundError{Entity: "pending photo", ID: id}
}

func (s *stubPhotos) GetGallery(ctx context.Context, id int64) (*models.GalleryPhoto, error) {
	return nil, &repositories.NotFoundError{Entity: "gallery photo", ID: id}
}

func (s *stubPhotos) ListGallery(ctx context.Context) ([]*models.GalleryPhoto, error) {
	return []*models.GalleryPhoto{}, nil
}

func (s *stubPhotos) DeleteGallery(ctx context.Context, id int64) error {
	return &repositories.NotFoundError{Entity: "gallery photo", ID: id}
}

type stubQuests struct{}

func (s *stubQuests) Create(ctx context.Context, quest *models.Quest) error {
	quest.ID = 1
	return nil
}

func (s *stubQuests) GetByID(ctx context.Context, id int64) (*models.Quest, error) {
	return nil, &repositories.NotFoundError{Entity: "quest", ID: id}
}

func (s *stubQuests) ListAll(ctx context.Context) ([]*models.Quest, error) {
	return []*models.Quest{}, nil
}

func (s *stubQuests) ListActive(ctx context.Context) ([]*models.Quest, error) {
	return []*models.Quest{}, nil
}

func (s *stubQuests) RefreshWeeklyActivation(ctx context.Context, now time.Time) error { return nil }

type stubProgress struct {
	total int64
}

func (s *stubProgress) GetTotal(ctx context.Context) (int64, error) { return s.total, nil }

func (s *stubProgress) ListTiers(ctx context.Context) ([]*models.RewardTier, error) {
	return []*models.RewardTier{{ID: 1, Threshold: 100, Description: "Bronze"}}, nil
}

type stubBlobs struct{}

func (s *stubBlobs) Store(ctx context.Context, data []byte, folder, contentType string) (*coreservices.StoredObject, error) {
	return &coreservices.StoredObject{Key: folder + "/key", URL: "https://blobs.test/" + folder + "/key"}, nil
}

func (s *stubBlobs) Delete(ctx context.Context, key string) error { return nil }

func testApp(devices *stubDevices) (*fiber.App, *handlers.WebApp) {
	cfg := &snapquest.Config{}
	cfg.Web.SessionKey = "0123456789abcdef0123456789abcdef"
	cfg.Web.AdminPassphrase = "open sesame"
	webCfg := config.NewWebAppConfig(cfg, true)

	accounts := &stubAccounts{}
	photos := &stubPhotos{}
	blobs := &stubBlobs{}

	webApp := &handlers.WebApp{
		Config:            webCfg,
		Devices:           devices,
		Accounts:          accounts,
		Photos:            photos,
		Quests:            &stubQuests{},
		Progress:          &stubProgress{total: 42},
		SessionService:    webservices.NewSessionService(webCfg),
		AuthService:       webservices.NewAuthService(accounts, devices, webCfg.AdminPassphrase()),
		UploadService:     webservices.NewUploadService(photos, blobs),
		ModerationService: webservices.NewModerationService(photos, blobs),
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	app.Use(middleware.DeviceContext(webApp))

	app.Get("/healthz", handlers.HealthCheck(webApp))
	app.Get("/", handlers.Feed(webApp))
	app.Get("/toilet-app", handlers.AppFeed(webApp))
	app.Post("/upload", handlers.Upload(webApp))

	admin := app.Group("/admin")
	admin.Use(middleware.AuthRequired(webApp))
	admin.Use(middleware.AdminRequired())
	admin.Get("/", handlers.AdminDashboard(webApp))

	return app, webApp
}

// sessionCookie mints a signed session cookie value for the given identity.
func sessionCookie(t *testing.T, webApp *handlers.WebApp, username string, admin bool) string {
	t.Helper()

	app := fiber.New()
	c := app.AcquireCtx(&fasthttp.RequestCtx{})
	defer app.ReleaseCtx(c)

	err := webApp.SessionService.CreateSession(c, &webmodels.UserSession{
		AccountID: 7,
		Username:  username,
		IsAdmin:   admin,
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)
	cookie.SetKey(webservices.SessionCookieName)
	if !c.Response().Header.Cookie(cookie) {
		t.Fatal("CreateSession() never set the session cookie")
	}
	return string(cookie.Value())
}

func TestHealthCheck(t *testing.T) {
	app, _ := testApp(&stubDevices{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Errorf("GET /healthz body = %q, want OK", body)
	}
}

func TestFeedSetsDeviceCookie(t *testing.T) {
	app, _ := testApp(&stubDevices{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", resp.StatusCode)
	}

	var minted bool
	for _, c := range resp.Cookies() {
		if c.Name == middleware.DeviceCookieName && len(c.Value) == 64 {
			minted = true
		}
	}
	if !minted {
		t.Error("GET / never minted a device cookie for a fresh browser")
	}
}

func TestUploadRequiresPermission(t *testing.T) {
	app, _ := testApp(&stubDevices{canUpload: false})

	body, contentType := multipartPhoto(t, "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("POST /upload status = %d, want 403 for an unauthorized device", resp.StatusCode)
	}
}

func TestUploadFromAuthorizedDevice(t *testing.T) {
	app, _ := testApp(&stubDevices{canUpload: true})

	body, contentType := multipartPhoto(t, "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("POST /upload status = %d, want 201", resp.StatusCode)
	}
}

// A broken binding lookup is a dependency failure, not a permission denial.
func TestUploadBindingLookupFailureIsServerError(t *testing.T) {
	app, webApp := testApp(&stubDevices{})
	webApp.Accounts.(*stubAccounts).deviceLookupErr = &repositories.RepositoryError{
		Operation: "get_by_device",
		Entity:    "account",
		Err:       errors.New("connection refused"),
	}

	body, contentType := multipartPhoto(t, "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("POST /upload status = %d, want 500 when the binding lookup fails", resp.StatusCode)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	app, _ := testApp(&stubDevices{canUpload: true})

	body, contentType := multipartPhoto(t, "image/gif", []byte("GIF89a"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST /upload status = %d, want 400 for a gif", resp.StatusCode)
	}
}

func multipartPhoto(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="photo"; filename="photo.bin"`}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write multipart body: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart body: %v", err)
	}

	return &buf, w.FormDataContentType()
}

func TestAdminAccessControl(t *testing.T) {
	app, webApp := testApp(&stubDevices{})

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
	}{
		{name: "anonymous gets bounced", cookie: "", wantStatus: http.StatusSeeOther},
		{name: "regular user forbidden", cookie: sessionCookie(t, webApp, "alice", false), wantStatus: http.StatusForbidden},
		{name: "admin allowed", cookie: sessionCookie(t, webApp, "root", true), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: webservices.SessionCookieName, Value: tt.cookie})
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("GET /admin/ status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}
