package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Quest struct {
	bun.BaseModel `bun:"table:quests,alias:q"`

	ID          int64      `bun:"id,pk,autoincrement"`
	Title       string     `bun:"title,notnull"`
	Description string     `bun:"description,notnull"`
	Type        string     `bun:"type,notnull"`
	Points      int64      `bun:"points,notnull,default:0"`
	StartsAt    *time.Time `bun:"starts_at"`
	EndsAt      *time.Time `bun:"ends_at"`
	Active      bool       `bun:"active,notnull,default:true"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

// Quest type constants. Only weekly quests carry an active window; their
// active flag is derived from it and recomputed before listing reads.
const (
	QuestTypeDaily   = "daily"
	QuestTypeSpecial = "special"
	QuestTypeWeekly  = "weekly"
)

func ValidQuestType(t string) bool {
	switch t {
	case QuestTypeDaily, QuestTypeSpecial, QuestTypeWeekly:
		return true
	}
	return false
}

// WindowContains reports whether now falls inside the quest's active window.
// A missing bound on either side means the window never matches.
func (q *Quest) WindowContains(now time.Time) bool {
	if q.StartsAt == nil || q.EndsAt == nil {
		return false
	}
	return !now.Before(*q.StartsAt) && !now.After(*q.EndsAt)
}
