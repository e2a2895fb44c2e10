package services

import (
	"context"
	"errors"
	"sync"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/repositories"
	coreservices "github.com/ellavondegurechaff/snapquest/snapquest/services"
)

// fakeBlobStore records Store/Delete calls and can be told to fail either.
type fakeBlobStore struct {
	mu sync.Mutex

	storeErr  error
	deleteErr error

	stored  []string
	deleted []string
}

func (f *fakeBlobStore) Store(ctx context.Context, data []byte, folder, contentType string) (*coreservices.StoredObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	key := folder + "/blob-" + contentType
	f.stored = append(f.stored, key)
	return &coreservices.StoredObject{
		Key: key,
		URL: "https://blobs.test/" + key,
	}, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

// fakePhotoRepo is an in-memory PhotoRepository. Approve and DeletePending
// are serialized the way the row lock serializes them in Postgres.
type fakePhotoRepo struct {
	mu sync.Mutex

	createErr error
	nextID    int64

	pending map[int64]*models.PendingPhoto
	gallery map[int64]*models.GalleryPhoto

	questPoints map[int64]int64
	totalPoints int64
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{
		pending:     make(map[int64]*models.PendingPhoto),
		gallery:     make(map[int64]*models.GalleryPhoto),
		questPoints: make(map[int64]int64),
	}
}

func (f *fakePhotoRepo) CreatePending(ctx context.Context, photo *models.PendingPhoto) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	photo.ID = f.nextID
	f.pending[photo.ID] = photo
	return nil
}

func (f *fakePhotoRepo) GetPending(ctx context.Context, id int64) (*models.PendingPhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	photo, ok := f.pending[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "pending photo", ID: id}
	}
	return photo, nil
}

func (f *fakePhotoRepo) ListPending(ctx context.Context) ([]*models.PendingPhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.PendingPhoto, 0, len(f.pending))
	for _, p := range f.pending {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePhotoRepo) Approve(ctx context.Context, id int64) (*repositories.ApprovalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending, ok := f.pending[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "pending photo", ID: id}
	}

	var points int64
	if pending.QuestID != nil {
		points = f.questPoints[*pending.QuestID]
	}

	f.nextID++
	photo := &models.GalleryPhoto{
		ID:         f.nextID,
		Filename:   pending.Filename,
		URL:        pending.URL,
		AccountID:  pending.AccountID,
		CapturedAt: pending.CapturedAt,
	}
	f.gallery[photo.ID] = photo
	f.totalPoints += points
	delete(f.pending, id)

	return &repositories.ApprovalResult{Photo: photo, PointsAwarded: points}, nil
}

func (f *fakePhotoRepo) DeletePending(ctx context.Context, id int64) (*models.PendingPhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	photo, ok := f.pending[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "pending photo", ID: id}
	}
	delete(f.pending, id)
	return photo, nil
}

func (f *fakePhotoRepo) GetGallery(ctx context.Context, id int64) (*models.GalleryPhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	photo, ok := f.gallery[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "gallery photo", ID: id}
	}
	return photo, nil
}

func (f *fakePhotoRepo) ListGallery(ctx context.Context) ([]*models.GalleryPhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.GalleryPhoto, 0, len(f.gallery))
	for _, p := range f.gallery {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePhotoRepo) DeleteGallery(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.gallery[id]; !ok {
		return &repositories.NotFoundError{Entity: "gallery photo", ID: id}
	}
	delete(f.gallery, id)
	return nil
}

// fakeAccountRepo backs auth tests with a fixed account set.
type fakeAccountRepo struct {
	accounts map[string]*models.Account
	bindings []string // "accountID:token"
	bindErr  error
}

var errFakeUnsupported = errors.New("not supported by fake")

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "account", ID: id}
}

func (f *fakeAccountRepo) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if a, ok := f.accounts[username]; ok {
		return a, nil
	}
	return nil, &repositories.NotFoundError{Entity: "account"}
}

func (f *fakeAccountRepo) Create(ctx context.Context, account *models.Account) error {
	return errFakeUnsupported
}

func (f *fakeAccountRepo) Delete(ctx context.Context, id int64) error {
	return errFakeUnsupported
}

func (f *fakeAccountRepo) List(ctx context.Context) ([]*models.Account, error) {
	return nil, errFakeUnsupported
}

func (f *fakeAccountRepo) BindDevice(ctx context.Context, accountID int64, deviceToken string) error {
	if f.bindErr != nil {
		return f.bindErr
	}
	f.bindings = append(f.bindings, deviceToken)
	return nil
}

func (f *fakeAccountRepo) GetByDeviceToken(ctx context.Context, deviceToken string) (*models.Account, error) {
	return nil, &repositories.NotFoundError{Entity: "account"}
}

// fakeDeviceRepo tracks permission flips keyed by token.
type fakeDeviceRepo struct {
	permissions map[string]bool
	setErr      error
}

func (f *fakeDeviceRepo) GetByToken(ctx context.Context, token string) (*models.Device, error) {
	return nil, &repositories.NotFoundError{Entity: "device"}
}

func (f *fakeDeviceRepo) Create(ctx context.Context, token string) (*models.Device, error) {
	return &models.Device{Token: token}, nil
}

func (f *fakeDeviceRepo) GetOrCreate(ctx context.Context, token string) (*models.Device, error) {
	return &models.Device{Token: token, CanUpload: f.permissions[token]}, nil
}

func (f *fakeDeviceRepo) SetUploadPermission(ctx context.Context, token string, allowed bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.permissions == nil {
		f.permissions = make(map[string]bool)
	}
	f.permissions[token] = allowed
	return nil
}
