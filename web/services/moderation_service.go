package services

import (
	"context"
	"log/slog"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/repositories"
)

// ModerationService drives the admin decision on pending photos. The
// atomicity of an approval lives in the repository transaction; this layer
// adds the best-effort blob purges around it.
type ModerationService struct {
	photos repositories.PhotoRepository
	blobs  BlobStore
}

func NewModerationService(photos repositories.PhotoRepository, blobs BlobStore) *ModerationService {
	return &ModerationService{
		photos: photos,
		blobs:  blobs,
	}
}

func (s *ModerationService) Pending(ctx context.Context) ([]*models.PendingPhoto, error) {
	return s.photos.ListPending(ctx)
}

// Approve promotes a pending photo and credits its quest points, all inside
// one repository transaction.
func (s *ModerationService) Approve(ctx context.Context, id int64) (*repositories.ApprovalResult, error) {
	result, err := s.photos.Approve(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.Info("Pending photo approved",
		slog.Int64("pending_id", id),
		slog.Int64("gallery_id", result.Photo.ID),
		slog.Int64("points_awarded", result.PointsAwarded))

	return result, nil
}

// Reject discards a pending photo and purges its blob. The purge is
// best-effort; a blob-store failure never un-rejects the photo.
func (s *ModerationService) Reject(ctx context.Context, id int64) error {
	photo, err := s.photos.DeletePending(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, photo.Filename); err != nil {
		slog.Warn("Failed to purge rejected photo blob",
			slog.Int64("pending_id", id),
			slog.String("key", photo.Filename),
			slog.Any("error", err))
	}

	slog.Info("Pending photo rejected", slog.Int64("pending_id", id))
	return nil
}

// DeleteGalleryPhoto removes a public photo. The blob delete is attempted
// first but the row goes away regardless of its outcome.
func (s *ModerationService) DeleteGalleryPhoto(ctx context.Context, id int64) error {
	photo, err := s.photos.GetGallery(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, photo.Filename); err != nil {
		slog.Warn("Failed to delete gallery photo blob",
			slog.Int64("photo_id", id),
			slog.String("key", photo.Filename),
			slog.Any("error", err))
	}

	return s.photos.DeleteGallery(ctx, id)
}
