package entity

import (
	"time"

	"practiceflow-api/core/entity"

	"github.com/google/uuid"
)

const ProviderGoogle = "google"

// CalendarConnection stores the one calendar credential set a user may hold.
// The table is unique on user_id; the upsert in the repository is the only
// write path for a successful connection.
type CalendarConnection struct {
	entity.BaseEntity
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Provider       string     `db:"provider" json:"provider"`
	AccessToken    string     `db:"access_token" json:"-"`
	RefreshToken   string     `db:"refresh_token" json:"-"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty"`
	CalendarID     string     `db:"calendar_id" json:"calendar_id"`
	CalendarEmail  string     `db:"calendar_email" json:"calendar_email"`
	ConnectedAt    time.Time  `db:"connected_at" json:"connected_at"`
}

func (CalendarConnection) TableName() string {
	return "calendar_connections"
}

// TokenExpired reports whether the access token needs refreshing. An unknown
// expiry counts as expired so the refresh path decides what to do with it.
func (c *CalendarConnection) TokenExpired(now time.Time) bool {
	if c.TokenExpiresAt == nil {
		return true
	}
	return now.After(*c.TokenExpiresAt)
}
