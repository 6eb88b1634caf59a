package repository

import (
	"context"
	"database/sql"
	"time"

	"practiceflow-api/core/database"
	"practiceflow-api/core/logger"
	"practiceflow-api/modules/calendar/entity"

	"github.com/google/uuid"
)

type ConnectionRepository interface {
	Upsert(ctx context.Context, conn *entity.CalendarConnection) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]entity.CalendarConnection, error)
}

type connectionRepository struct {
	db database.IDatabase
}

func NewConnectionRepository(db database.IDatabase) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Upsert inserts or fully replaces the connection row for conn.UserID. The
// ON CONFLICT clause makes concurrent connection attempts last-write-wins.
func (r *connectionRepository) Upsert(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		INSERT INTO calendar_connections (
			id, user_id, provider, access_token, refresh_token,
			token_expires_at, calendar_id, calendar_email, connected_at,
			created_at, updated_at
		)
		VALUES (
			gen_random_uuid(), :user_id, :provider, :access_token, :refresh_token,
			:token_expires_at, :calendar_id, :calendar_email, :connected_at,
			NOW(), NOW()
		)
		ON CONFLICT (user_id)
		DO UPDATE SET
			provider = EXCLUDED.provider,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			calendar_id = EXCLUDED.calendar_id,
			calendar_email = EXCLUDED.calendar_email,
			connected_at = EXCLUDED.connected_at,
			updated_at = NOW()
	`
	_, err := r.db.NamedExecContext(ctx, query, conn)
	if err != nil {
		logger.Error("ConnectionRepository:Upsert:Error", "error", err, "user_id", conn.UserID)
		return err
	}
	return nil
}

func (r *connectionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.CalendarConnection, error) {
	var conn entity.CalendarConnection
	query := `
		SELECT id, user_id, provider, access_token, refresh_token,
		       token_expires_at, calendar_id, calendar_email, connected_at,
		       created_at, updated_at
		FROM calendar_connections
		WHERE user_id = $1
	`
	err := r.db.GetContext(ctx, &conn, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("ConnectionRepository:GetByUserID:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return &conn, nil
}

// Delete removes the connection row. Deleting a row that does not exist is
// not an error; disconnect is idempotent.
func (r *connectionRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM calendar_connections WHERE user_id = $1`
	err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		logger.Error("ConnectionRepository:Delete:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// ListExpiringBefore returns connections whose access token expires before
// cutoff and that hold a refresh token, for the background refresh sweep.
func (r *connectionRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]entity.CalendarConnection, error) {
	var connections []entity.CalendarConnection
	query := `
		SELECT id, user_id, provider, access_token, refresh_token,
		       token_expires_at, calendar_id, calendar_email, connected_at,
		       created_at, updated_at
		FROM calendar_connections
		WHERE token_expires_at IS NOT NULL
		  AND token_expires_at < $1
		  AND refresh_token <> ''
		ORDER BY token_expires_at ASC
	`
	err := r.db.SelectContext(ctx, &connections, query, cutoff)
	if err != nil {
		logger.Error("ConnectionRepository:ListExpiringBefore:Error", "error", err, "cutoff", cutoff)
		return nil, err
	}
	return connections, nil
}
