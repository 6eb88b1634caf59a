package repository

import (
	"context"
	"database/sql"

	"practiceflow-api/core/database"
	"practiceflow-api/core/logger"
	"practiceflow-api/modules/billing/entity"

	"github.com/google/uuid"
)

type EntitlementRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	MarkPaid(ctx context.Context, userID uuid.UUID, customerID *string) (bool, error)
}

type entitlementRepository struct {
	db database.IDatabase
}

func NewEntitlementRepository(db database.IDatabase) EntitlementRepository {
	return &entitlementRepository{db: db}
}

func (r *entitlementRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	query := `
		SELECT id, plan, stripe_customer_id, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("EntitlementRepository:GetProfile:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return &profile, nil
}

// MarkPaid applies the entitlement transition for a completed checkout. The
// update is a targeted field-level set keyed on the user id: setting
// plan='paid' twice leaves the row identical, and COALESCE keeps an existing
// customer id from ever being overwritten or cleared. Returns whether a
// profile row matched.
func (r *entitlementRepository) MarkPaid(ctx context.Context, userID uuid.UUID, customerID *string) (bool, error) {
	query := `
		UPDATE profiles
		SET plan = 'paid',
		    stripe_customer_id = COALESCE(stripe_customer_id, $2),
		    updated_at = NOW()
		WHERE id = $1
	`
	rows, err := r.db.ExecRowsContext(ctx, query, userID, customerID)
	if err != nil {
		logger.Error("EntitlementRepository:MarkPaid:Error", "error", err, "user_id", userID)
		return false, err
	}
	return rows > 0, nil
}
