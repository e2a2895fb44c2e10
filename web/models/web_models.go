package models

import "time"

// UserSession is the payload carried inside the signed session cookie.
type UserSession struct {
	AccountID int64     `json:"account_id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}
