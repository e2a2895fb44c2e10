package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
)

// InitializeRewardData seeds the singleton progress row and, when the table
// is empty, a default reward-tier ladder. Safe to run on every startup.
func (db *DB) InitializeRewardData(ctx context.Context) error {
	progress := &models.GlobalProgress{
		ID:        models.GlobalProgressID,
		Points:    0,
		UpdatedAt: time.Now(),
	}
	_, err := db.bunDB.NewInsert().
		Model(progress).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}

	var tierCount int
	err = db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reward_tiers").Scan(&tierCount)
	if err == nil && tierCount > 0 {
		slog.Info("Reward tiers already initialized, skipping",
			slog.Int("existing_tiers", tierCount))
		return nil
	}

	slog.Info("Initializing default reward tiers...")

	tiers := []models.RewardTier{
		{Threshold: 100, Description: "Bronze frame on the gallery wall", Icon: "tier_bronze.png"},
		{Threshold: 500, Description: "Silver frame and a confetti banner", Icon: "tier_silver.png"},
		{Threshold: 1000, Description: "Gold frame takeover", Icon: "tier_gold.png"},
	}

	_, err = db.bunDB.NewInsert().Model(&tiers).Exec(ctx)
	if err != nil {
		return err
	}

	slog.Info("Reward tiers initialized", slog.Int("count", len(tiers)))
	return nil
}
