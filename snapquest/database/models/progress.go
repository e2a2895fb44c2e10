package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GlobalProgressID is the primary key of the only global_progress row.
const GlobalProgressID int64 = 1

// GlobalProgress holds the single running point total shared by all
// visitors. It is advanced only inside the approval transaction.
type GlobalProgress struct {
	bun.BaseModel `bun:"table:global_progress,alias:gpr"`

	ID        int64     `bun:"id,pk"`
	Points    int64     `bun:"points,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// RewardTier is a point threshold with an associated visual reward.
// Tiers are read in ascending threshold order.
type RewardTier struct {
	bun.BaseModel `bun:"table:reward_tiers,alias:rt"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Threshold   int64  `bun:"threshold,notnull"`
	Description string `bun:"description,notnull"`
	Icon        string `bun:"icon"`
}
