package repositories

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/uptrace/bun"
)

type QuestRepository interface {
	Create(ctx context.Context, quest *models.Quest) error
	GetByID(ctx context.Context, id int64) (*models.Quest, error)

	// ListAll and ListActive refresh weekly activation before reading, so
	// the stored active flag is never trusted for time-boxed quests.
	ListAll(ctx context.Context) ([]*models.Quest, error)
	ListActive(ctx context.Context) ([]*models.Quest, error)

	RefreshWeeklyActivation(ctx context.Context, now time.Time) error
}

type questRepository struct {
	*BaseRepository
}

func NewQuestRepository(db *bun.DB) QuestRepository {
	return &questRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *questRepository) Create(ctx context.Context, quest *models.Quest) error {
	quest.CreatedAt = time.Now()
	quest.UpdatedAt = time.Now()

	if quest.Type == models.QuestTypeWeekly {
		quest.Active = quest.WindowContains(time.Now())
	}

	_, err := r.db.NewInsert().Model(quest).Exec(ctx)
	if err != nil {
		return r.HandleError("create", "quest", err)
	}
	return nil
}

func (r *questRepository) GetByID(ctx context.Context, id int64) (*models.Quest, error) {
	quest := new(models.Quest)
	err := r.db.NewSelect().
		Model(quest).
		Where("q.id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "quest", id, err)
	}

	return quest, nil
}

func (r *questRepository) ListAll(ctx context.Context) ([]*models.Quest, error) {
	if err := r.RefreshWeeklyActivation(ctx, time.Now()); err != nil {
		return nil, err
	}

	var quests []*models.Quest
	err := r.db.NewSelect().
		Model(&quests).
		Order("type ASC", "id ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list", "quest", err)
	}

	return quests, nil
}

func (r *questRepository) ListActive(ctx context.Context) ([]*models.Quest, error) {
	if err := r.RefreshWeeklyActivation(ctx, time.Now()); err != nil {
		return nil, err
	}

	var quests []*models.Quest
	err := r.db.NewSelect().
		Model(&quests).
		Where("active = ?", true).
		Order("type ASC", "id ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list_active", "quest", err)
	}

	return quests, nil
}

// RefreshWeeklyActivation derives the active flag of every weekly quest from
// its window. Idempotent, safe to run on every request.
func (r *questRepository) RefreshWeeklyActivation(ctx context.Context, now time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.Quest)(nil)).
		Set("active = (starts_at IS NOT NULL AND ends_at IS NOT NULL AND starts_at <= ? AND ends_at >= ?)", now, now).
		Set("updated_at = ?", now).
		Where("type = ?", models.QuestTypeWeekly).
		Exec(ctx)

	if err != nil {
		return r.HandleError("refresh_activation", "quest", err)
	}
	return nil
}
