package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Device is the anonymous identity behind a browser. It is created on the
// first request carrying no recognized token and never deleted.
type Device struct {
	bun.BaseModel `bun:"table:devices,alias:d"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Token     string    `bun:"token,notnull,unique"`
	CanUpload bool      `bun:"can_upload,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
