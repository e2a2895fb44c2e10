package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	IsAdmin      bool      `bun:"is_admin,notnull,default:false"`
	DisplayImage string    `bun:"display_image"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// AccountDevice binds a device token to an account. Bindings are append-only:
// a login on a shared browser adds a row, it never rebinds the token away
// from the prior account.
type AccountDevice struct {
	bun.BaseModel `bun:"table:account_devices,alias:ad"`

	ID          int64     `bun:"id,pk,autoincrement"`
	AccountID   int64     `bun:"account_id,notnull"`
	DeviceToken string    `bun:"device_token,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
