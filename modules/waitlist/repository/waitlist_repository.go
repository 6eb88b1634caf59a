package repository

import (
	"context"

	"practiceflow-api/core/database"
	"practiceflow-api/core/logger"
	"practiceflow-api/modules/waitlist/entity"

	"github.com/lib/pq"
)

// ErrDuplicateEmail marks an insert that hit the unique email constraint.
type duplicateEmailError struct{}

func (duplicateEmailError) Error() string { return "email already on waitlist" }

var ErrDuplicateEmail = duplicateEmailError{}

type WaitlistRepository interface {
	Insert(ctx context.Context, lead *entity.Lead) error
}

type waitlistRepository struct {
	db database.IDatabase
}

func NewWaitlistRepository(db database.IDatabase) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (r *waitlistRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO waitlist_leads (id, public_id, email, created_at)
		VALUES (gen_random_uuid(), $1, $2, NOW())
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, lead.PublicID, lead.Email).Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		logger.Error("WaitlistRepository:Insert:Error", "error", err)
		return err
	}
	return nil
}
