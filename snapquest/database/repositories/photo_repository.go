package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/uptrace/bun"
)

// ApprovalResult reports what an approval committed: the promoted photo and
// the points credited to the global total (0 when the upload carried no
// quest or the quest has since been deleted).
type ApprovalResult struct {
	Photo         *models.GalleryPhoto
	PointsAwarded int64
}

type PhotoRepository interface {
	CreatePending(ctx context.Context, photo *models.PendingPhoto) error
	GetPending(ctx context.Context, id int64) (*models.PendingPhoto, error)
	ListPending(ctx context.Context) ([]*models.PendingPhoto, error)

	// Approve promotes a pending photo into the gallery and credits quest
	// points in a single transaction. Concurrent approvals of the same id
	// resolve as one success and one NotFoundError.
	Approve(ctx context.Context, id int64) (*ApprovalResult, error)

	// DeletePending removes a pending row and returns it so callers can
	// purge the stored blob.
	DeletePending(ctx context.Context, id int64) (*models.PendingPhoto, error)

	GetGallery(ctx context.Context, id int64) (*models.GalleryPhoto, error)
	ListGallery(ctx context.Context) ([]*models.GalleryPhoto, error)
	DeleteGallery(ctx context.Context, id int64) error
}

type photoRepository struct {
	*BaseRepository
}

func NewPhotoRepository(db *bun.DB) PhotoRepository {
	return &photoRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *photoRepository) CreatePending(ctx context.Context, photo *models.PendingPhoto) error {
	photo.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(photo).Exec(ctx)
	if err != nil {
		return r.HandleError("create", "pending photo", err)
	}
	return nil
}

func (r *photoRepository) GetPending(ctx context.Context, id int64) (*models.PendingPhoto, error) {
	photo := new(models.PendingPhoto)
	err := r.db.NewSelect().
		Model(photo).
		Where("pp.id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "pending photo", id, err)
	}

	return photo, nil
}

func (r *photoRepository) ListPending(ctx context.Context) ([]*models.PendingPhoto, error) {
	var photos []*models.PendingPhoto
	err := r.db.NewSelect().
		Model(&photos).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list", "pending photo", err)
	}

	return photos, nil
}

func (r *photoRepository) Approve(ctx context.Context, id int64) (*ApprovalResult, error) {
	var result *ApprovalResult

	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		// Lock the pending row first. A concurrent approval blocks here and,
		// once we commit the delete below, finds no row.
		pending := new(models.PendingPhoto)
		err := tx.NewSelect().
			Model(pending).
			Where("pp.id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &NotFoundError{Entity: "pending photo", ID: id}
			}
			return err
		}

		// A deleted or absent quest degrades to zero points, it does not
		// block the approval.
		var points int64
		if pending.QuestID != nil {
			quest := new(models.Quest)
			err := tx.NewSelect().
				Model(quest).
				Where("q.id = ?", *pending.QuestID).
				Scan(ctx)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if err == nil {
				points = quest.Points
			}
		}

		photo := &models.GalleryPhoto{
			Filename:   pending.Filename,
			URL:        pending.URL,
			AccountID:  pending.AccountID,
			CapturedAt: pending.CapturedAt,
			CreatedAt:  time.Now(),
		}
		if _, err := tx.NewInsert().Model(photo).Exec(ctx); err != nil {
			return err
		}

		if points > 0 {
			if _, err := tx.NewUpdate().
				Model((*models.GlobalProgress)(nil)).
				Set("points = points + ?", points).
				Set("updated_at = ?", time.Now()).
				Where("id = ?", models.GlobalProgressID).
				Exec(ctx); err != nil {
				return err
			}
		}

		if _, err := tx.NewDelete().
			Model((*models.PendingPhoto)(nil)).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		result = &ApprovalResult{Photo: photo, PointsAwarded: points}
		return nil
	})

	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, r.HandleErrorWithID("approve", "pending photo", id, err)
	}

	return result, nil
}

func (r *photoRepository) DeletePending(ctx context.Context, id int64) (*models.PendingPhoto, error) {
	photo := new(models.PendingPhoto)
	err := r.db.NewDelete().
		Model(photo).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("delete", "pending photo", id, err)
	}

	return photo, nil
}

func (r *photoRepository) GetGallery(ctx context.Context, id int64) (*models.GalleryPhoto, error) {
	photo := new(models.GalleryPhoto)
	err := r.db.NewSelect().
		Model(photo).
		Where("gp.id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "gallery photo", id, err)
	}

	return photo, nil
}

func (r *photoRepository) ListGallery(ctx context.Context) ([]*models.GalleryPhoto, error) {
	var photos []*models.GalleryPhoto
	err := r.db.NewSelect().
		Model(&photos).
		OrderExpr("COALESCE(captured_at, created_at) DESC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list", "gallery photo", err)
	}

	return photos, nil
}

func (r *photoRepository) DeleteGallery(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*models.GalleryPhoto)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return r.HandleErrorWithID("delete", "gallery photo", id, err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return &NotFoundError{Entity: "gallery photo", ID: id}
	}

	return nil
}
