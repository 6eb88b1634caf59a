package entity

import (
	"time"

	"github.com/google/uuid"
)

// Lead is one waitlist signup. Unique on the normalized email; duplicates
// are rejected, never merged. PublicID is the short reference used in
// outbound invite links so the row uuid never leaves the system.
type Lead struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PublicID  string    `db:"public_id" json:"public_id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (Lead) TableName() string {
	return "waitlist_leads"
}
