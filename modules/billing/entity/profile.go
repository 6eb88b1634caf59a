package entity

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the entitlement tier. The only transition this core performs is
// free -> paid, driven by the webhook reconciler.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPaid Plan = "paid"
)

// Profile is the billing-relevant subset of the user profile. The row is
// created at signup by the identity layer; this core only updates plan and
// stripe_customer_id.
type Profile struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Plan             Plan      `db:"plan" json:"plan"`
	StripeCustomerID *string   `db:"stripe_customer_id" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
