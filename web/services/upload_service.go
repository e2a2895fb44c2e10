package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/repositories"
	coreservices "github.com/ellavondegurechaff/snapquest/snapquest/services"
)

// MaxUploadBytes caps an incoming image at 5 MiB.
const MaxUploadBytes = 5 << 20

const pendingFolder = "pending"

var (
	ErrUnsupportedType = errors.New("unsupported image type, only JPEG and PNG are accepted")
	ErrTooLarge        = errors.New("image exceeds the 5 MiB upload limit")
	ErrEmptyUpload     = errors.New("empty upload")
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// BlobStore is the slice of the blob host the web layer needs.
type BlobStore interface {
	Store(ctx context.Context, data []byte, folder, contentType string) (*coreservices.StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// UploadRequest carries one validated-identity upload into the intake.
type UploadRequest struct {
	Data        []byte
	ContentType string
	AccountID   *int64
	DeviceToken string
	QuestID     *int64
}

// UploadService runs the intake pipeline: validate, extract the capture
// timestamp, store the blob, then record the pending row. Gallery and
// progress are never touched here; that happens at moderation time.
type UploadService struct {
	photos repositories.PhotoRepository
	blobs  BlobStore
}

func NewUploadService(photos repositories.PhotoRepository, blobs BlobStore) *UploadService {
	return &UploadService{
		photos: photos,
		blobs:  blobs,
	}
}

// ValidateImage rejects disallowed formats and oversized payloads before
// any blob-store call is made.
func ValidateImage(contentType string, size int) error {
	if !allowedContentTypes[contentType] {
		return ErrUnsupportedType
	}
	if size > MaxUploadBytes {
		return ErrTooLarge
	}
	if size == 0 {
		return ErrEmptyUpload
	}
	return nil
}

// IsClientError reports whether an intake error is the uploader's fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrEmptyUpload)
}

// ParseQuestID parses an optional quest reference from a form value.
// Absent or non-numeric input stores as null rather than failing the upload.
func ParseQuestID(raw string) *int64 {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func (s *UploadService) Submit(ctx context.Context, req UploadRequest) (*models.PendingPhoto, error) {
	if err := ValidateImage(req.ContentType, len(req.Data)); err != nil {
		return nil, err
	}

	photo := &models.PendingPhoto{
		AccountID:   req.AccountID,
		DeviceToken: req.DeviceToken,
		QuestID:     req.QuestID,
	}

	if dt, ok := coreservices.CaptureTime(req.Data); ok {
		photo.CapturedAt = &dt
	} else {
		slog.Warn("No capture timestamp in upload, storing without one",
			slog.String("content_type", req.ContentType),
			slog.Int("size", len(req.Data)))
	}

	// Blob first, row second: a storage failure must not leave a pending
	// row pointing at nothing.
	stored, err := s.blobs.Store(ctx, req.Data, pendingFolder, req.ContentType)
	if err != nil {
		return nil, err
	}
	photo.Filename = stored.Key
	photo.URL = stored.URL

	if err := s.photos.CreatePending(ctx, photo); err != nil {
		// The row never landed; drop the orphaned blob so storage does not
		// accumulate invisible objects.
		if delErr := s.blobs.Delete(ctx, stored.Key); delErr != nil {
			slog.Warn("Failed to clean up orphaned blob",
				slog.String("key", stored.Key),
				slog.Any("error", delErr))
		}
		return nil, err
	}

	slog.Info("Pending photo recorded",
		slog.Int64("pending_id", photo.ID),
		slog.String("key", stored.Key))

	return photo, nil
}
