package service

import (
	"context"
	"time"

	"practiceflow-api/core/constants"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/logger"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// TokenState tags the outcome of EnsureFreshToken.
type TokenState string

const (
	TokenStateValid          TokenState = "valid"
	TokenStateRefreshed      TokenState = "refreshed"
	TokenStateNeedsReconnect TokenState = "needs_reconnection"
)

// EnsureFreshToken returns a usable access token for the user's connection,
// refreshing it first when expired. Callers consuming the token (availability
// lookups, event writes) go through here before every use; the refresh is
// never hidden inside a read path. A revoked refresh token deletes the
// connection so the UI surfaces reconnection instead of downstream calendar
// calls failing one by one.
func (service *calendarService) EnsureFreshToken(ctx context.Context, userID uuid.UUID) (string, TokenState, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	conn, err := service.repo.GetByUserID(ctx, userID)
	if err != nil {
		logger.Error("CalendarService:EnsureFreshToken:Get:Error", "error", err, "user_id", userID)
		return "", TokenStateNeedsReconnect, errors.NewAppError(errors.ErrStoreUnavailable, "failed to load calendar connection", err)
	}
	if conn == nil {
		return "", TokenStateNeedsReconnect, nil
	}

	if !conn.TokenExpired(time.Now()) {
		return conn.AccessToken, TokenStateValid, nil
	}

	if conn.RefreshToken == "" {
		logger.Warn("CalendarService:EnsureFreshToken:NoRefreshToken", "user_id", userID)
		if err := service.repo.Delete(ctx, userID); err != nil {
			logger.Error("CalendarService:EnsureFreshToken:Delete:Error", "error", err, "user_id", userID)
		}
		return "", TokenStateNeedsReconnect, nil
	}

	oauthConfig, appErr := service.oauthConfig()
	if appErr != nil {
		return "", TokenStateNeedsReconnect, appErr
	}

	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken})
	newToken, err := tokenSource.Token()
	if err != nil {
		if isPermanentRefreshFailure(err) {
			// Provider revoked the grant; the connection is dead.
			logger.Warn("CalendarService:EnsureFreshToken:RefreshRevoked", "error", err, "user_id", userID)
			if delErr := service.repo.Delete(ctx, userID); delErr != nil {
				logger.Error("CalendarService:EnsureFreshToken:Delete:Error", "error", delErr, "user_id", userID)
				return "", TokenStateNeedsReconnect, errors.NewAppError(errors.ErrStoreUnavailable, "failed to remove revoked connection", delErr)
			}
			return "", TokenStateNeedsReconnect, nil
		}
		logger.Error("CalendarService:EnsureFreshToken:Refresh:Error", "error", err, "user_id", userID)
		return "", TokenStateNeedsReconnect, errors.NewAppError(errors.ErrOAuthExchange, "failed to refresh access token", err)
	}

	conn.AccessToken = newToken.AccessToken
	if newToken.RefreshToken != "" {
		conn.RefreshToken = newToken.RefreshToken
	}
	if !newToken.Expiry.IsZero() {
		expiry := newToken.Expiry
		conn.TokenExpiresAt = &expiry
	} else {
		conn.TokenExpiresAt = nil
	}

	if err := service.repo.Upsert(ctx, conn); err != nil {
		logger.Error("CalendarService:EnsureFreshToken:Upsert:Error", "error", err, "user_id", userID)
		return "", TokenStateNeedsReconnect, errors.NewAppError(errors.ErrPersistence, "failed to store refreshed token", err)
	}

	logger.Info("CalendarService:EnsureFreshToken:Refreshed", "user_id", userID, "expires_at", newToken.Expiry)
	return newToken.AccessToken, TokenStateRefreshed, nil
}

// isPermanentRefreshFailure reports whether the provider rejected the grant
// itself. Only the OAuth error codes that mean the refresh token will never
// work again count; anything else (rate limits, outages) is transient and
// must not cost the user their connection.
func isPermanentRefreshFailure(err error) bool {
	retrieveErr, ok := err.(*oauth2.RetrieveError)
	if !ok {
		return false
	}
	switch retrieveErr.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return true
	}
	return false
}

// RefreshExpiringConnections refreshes every connection expiring within the
// given window. Runs as the calendar:refresh_expiring background task; one
// failing connection does not stop the sweep.
func (service *calendarService) RefreshExpiringConnections(ctx context.Context, within time.Duration) error {
	cutoff := time.Now().Add(within)
	connections, err := service.repo.ListExpiringBefore(ctx, cutoff)
	if err != nil {
		logger.Error("CalendarService:RefreshExpiringConnections:List:Error", "error", err)
		return err
	}

	refreshed, failed := 0, 0
	for _, conn := range connections {
		_, state, appErr := service.EnsureFreshToken(ctx, conn.UserID)
		switch {
		case appErr != nil:
			failed++
		case state == TokenStateRefreshed:
			refreshed++
		}
	}

	if len(connections) > 0 {
		logger.Info("CalendarService:RefreshExpiringConnections:Done",
			"candidates", len(connections),
			"refreshed", refreshed,
			"failed", failed)
	}
	return nil
}
