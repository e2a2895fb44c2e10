package repositories

import (
	"context"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/uptrace/bun"
)

type ProgressRepository interface {
	// GetTotal reads the single global point total. It is never cached;
	// dependent writes happen inside the approval transaction instead.
	GetTotal(ctx context.Context) (int64, error)
	ListTiers(ctx context.Context) ([]*models.RewardTier, error)
}

type progressRepository struct {
	*BaseRepository
}

func NewProgressRepository(db *bun.DB) ProgressRepository {
	return &progressRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *progressRepository) GetTotal(ctx context.Context) (int64, error) {
	progress := new(models.GlobalProgress)
	err := r.db.NewSelect().
		Model(progress).
		Where("id = ?", models.GlobalProgressID).
		Scan(ctx)

	if err != nil {
		return 0, r.HandleErrorWithID("get", "global progress", models.GlobalProgressID, err)
	}

	return progress.Points, nil
}

func (r *progressRepository) ListTiers(ctx context.Context) ([]*models.RewardTier, error) {
	var tiers []*models.RewardTier
	err := r.db.NewSelect().
		Model(&tiers).
		Order("threshold ASC", "id ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list", "reward tier", err)
	}

	return tiers, nil
}
