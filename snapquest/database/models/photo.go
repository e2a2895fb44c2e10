package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PendingPhoto exists only between upload and the admin decision. Every row
// is eventually promoted to GalleryPhoto or deleted.
type PendingPhoto struct {
	bun.BaseModel `bun:"table:pending_photos,alias:pp"`

	ID          int64      `bun:"id,pk,autoincrement"`
	Filename    string     `bun:"filename,notnull"`
	URL         string     `bun:"url,notnull"`
	AccountID   *int64     `bun:"account_id"`
	DeviceToken string     `bun:"device_token,notnull"`
	QuestID     *int64     `bun:"quest_id"`
	CapturedAt  *time.Time `bun:"captured_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

// GalleryPhoto always represents an approved, publicly visible image.
type GalleryPhoto struct {
	bun.BaseModel `bun:"table:gallery_photos,alias:gp"`

	ID         int64      `bun:"id,pk,autoincrement"`
	Filename   string     `bun:"filename,notnull"`
	URL        string     `bun:"url,notnull"`
	AccountID  *int64     `bun:"account_id"`
	CapturedAt *time.Time `bun:"captured_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}
