package models

import "time"

// RefreshToken is one live login session. A user may hold several.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
}
