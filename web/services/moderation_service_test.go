package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/ellavondegurechaff/snapquest/snapquest/database/repositories"
	"golang.org/x/sync/errgroup"
)

func seedPending(repo *fakePhotoRepo, questID *int64) *models.PendingPhoto {
	photo := &models.PendingPhoto{
		Filename:    "pending/blob-image/jpeg",
		URL:         "https://blobs.test/pending/blob-image/jpeg",
		DeviceToken: "tok",
		QuestID:     questID,
	}
	_ = repo.CreatePending(context.Background(), photo)
	return photo
}

func TestApproveCreditsQuestPoints(t *testing.T) {
	repo := newFakePhotoRepo()
	repo.questPoints[7] = 50
	questID := int64(7)
	pending := seedPending(repo, &questID)

	svc := NewModerationService(repo, &fakeBlobStore{})

	result, err := svc.Approve(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.PointsAwarded != 50 {
		t.Errorf("Approve() points = %d, want 50", result.PointsAwarded)
	}
	if result.Photo.Filename != pending.Filename {
		t.Errorf("Approve() gallery filename = %q, want %q", result.Photo.Filename, pending.Filename)
	}
	if len(repo.pending) != 0 {
		t.Errorf("Approve() left %d pending rows, want 0", len(repo.pending))
	}
	if len(repo.gallery) != 1 {
		t.Errorf("Approve() gallery rows = %d, want 1", len(repo.gallery))
	}
}

func TestApproveMissingQuestAwardsNothing(t *testing.T) {
	repo := newFakePhotoRepo()
	deletedQuest := int64(404)
	pending := seedPending(repo, &deletedQuest)

	svc := NewModerationService(repo, &fakeBlobStore{})

	result, err := svc.Approve(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.PointsAwarded != 0 {
		t.Errorf("Approve() points = %d for a deleted quest, want 0", result.PointsAwarded)
	}
}

func TestApproveConcurrentDoubleClick(t *testing.T) {
	repo := newFakePhotoRepo()
	repo.questPoints[7] = 50
	questID := int64(7)
	pending := seedPending(repo, &questID)

	svc := NewModerationService(repo, &fakeBlobStore{})

	const attempts = 8
	results := make([]error, attempts)

	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			_, err := svc.Approve(context.Background(), pending.ID)
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var successes, notFound int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case repositories.IsNotFound(err):
			notFound++
		default:
			t.Errorf("Approve() unexpected error = %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("concurrent approvals: %d succeeded, want exactly 1", successes)
	}
	if notFound != attempts-1 {
		t.Errorf("concurrent approvals: %d reported not found, want %d", notFound, attempts-1)
	}
	if repo.totalPoints != 50 {
		t.Errorf("concurrent approvals credited %d points, want 50 exactly once", repo.totalPoints)
	}
	if len(repo.gallery) != 1 {
		t.Errorf("concurrent approvals created %d gallery rows, want 1", len(repo.gallery))
	}
}

func TestRejectPurgesBlob(t *testing.T) {
	repo := newFakePhotoRepo()
	pending := seedPending(repo, nil)
	blobs := &fakeBlobStore{}

	svc := NewModerationService(repo, blobs)

	if err := svc.Reject(context.Background(), pending.ID); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if len(repo.pending) != 0 {
		t.Errorf("Reject() left %d pending rows, want 0", len(repo.pending))
	}
	if len(blobs.deleted) != 1 || blobs.deleted[0] != pending.Filename {
		t.Errorf("Reject() deleted blobs = %v, want [%q]", blobs.deleted, pending.Filename)
	}
}

func TestRejectSurvivesBlobPurgeFailure(t *testing.T) {
	repo := newFakePhotoRepo()
	pending := seedPending(repo, nil)
	blobs := &fakeBlobStore{deleteErr: errors.New("spaces unavailable")}

	svc := NewModerationService(repo, blobs)

	if err := svc.Reject(context.Background(), pending.ID); err != nil {
		t.Fatalf("Reject() error = %v, purge failure must not fail the rejection", err)
	}
	if len(repo.pending) != 0 {
		t.Errorf("Reject() left %d pending rows, want 0", len(repo.pending))
	}
}

func TestRejectMissingPhoto(t *testing.T) {
	repo := newFakePhotoRepo()
	svc := NewModerationService(repo, &fakeBlobStore{})

	err := svc.Reject(context.Background(), 99)
	if !repositories.IsNotFound(err) {
		t.Errorf("Reject() error = %v, want not found", err)
	}
}

func TestDeleteGalleryPhotoRemovesRowDespiteBlobFailure(t *testing.T) {
	repo := newFakePhotoRepo()
	repo.gallery[1] = &models.GalleryPhoto{ID: 1, Filename: "photos/blob-1"}
	blobs := &fakeBlobStore{deleteErr: errors.New("spaces unavailable")}

	svc := NewModerationService(repo, blobs)

	if err := svc.DeleteGalleryPhoto(context.Background(), 1); err != nil {
		t.Fatalf("DeleteGalleryPhoto() error = %v", err)
	}
	if len(repo.gallery) != 0 {
		t.Errorf("DeleteGalleryPhoto() left %d gallery rows, want 0", len(repo.gallery))
	}
}
