package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"practiceflow-api/core/errors"
	"practiceflow-api/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expiredConnection(userID uuid.UUID, refreshToken string) entity.CalendarConnection {
	expiry := time.Now().Add(-time.Hour)
	return entity.CalendarConnection{
		UserID:         userID,
		Provider:       entity.ProviderGoogle,
		AccessToken:    "stale-access",
		RefreshToken:   refreshToken,
		TokenExpiresAt: &expiry,
	}
}

func TestEnsureFreshTokenNoConnection(t *testing.T) {
	setCalendarTestConfig(t, "http://stub.invalid/token", "http://stub.invalid/calendars")
	service := NewCalendarService(newFakeConnectionRepo())

	token, state, appErr := service.EnsureFreshToken(context.Background(), uuid.New())
	require.Nil(t, appErr)
	assert.Empty(t, token)
	assert.Equal(t, TokenStateNeedsReconnect, state)
}

func TestEnsureFreshTokenStillValid(t *testing.T) {
	setCalendarTestConfig(t, "http://stub.invalid/token", "http://stub.invalid/calendars")
	repo := newFakeConnectionRepo()
	service := NewCalendarService(repo)
	userID := uuid.New()

	expiry := time.Now().Add(time.Hour)
	repo.connections[userID] = entity.CalendarConnection{
		UserID:         userID,
		AccessToken:    "live-access",
		RefreshToken:   "r1",
		TokenExpiresAt: &expiry,
	}

	token, state, appErr := service.EnsureFreshToken(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, "live-access", token)
	assert.Equal(t, TokenStateValid, state)
}

func TestEnsureFreshTokenRefreshes(t *testing.T) {
	server := stubGoogle(t,
		`{"access_token":"fresh-access","token_type":"Bearer","expires_in":3600}`,
		`{"items":[]}`)
	setCalendarTestConfig(t, server.URL+"/token", server.URL+"/calendars")

	repo := newFakeConnectionRepo()
	service := NewCalendarService(repo)
	userID := uuid.New()
	repo.connections[userID] = expiredConnection(userID, "r1")

	token, state, appErr := service.EnsureFreshToken(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, "fresh-access", token)
	assert.Equal(t, TokenStateRefreshed, state)

	conn := repo.connections[userID]
	assert.Equal(t, "fresh-access", conn.AccessToken)
	// Provider did not rotate the refresh token, so the stored one survives.
	assert.Equal(t, "r1", conn.RefreshToken)
	require.NotNil(t, conn.TokenExpiresAt)
	assert.True(t, conn.TokenExpiresAt.After(time.Now()))
}

func TestEnsureFreshTokenRevokedGrantDeletesConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been revoked."}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	setCalendarTestConfig(t, server.URL+"/token", server.URL+"/calendars")

	repo := newFakeConnectionRepo()
	service := NewCalendarService(repo)
	userID := uuid.New()
	repo.connections[userID] = expiredConnection(userID, "revoked-refresh")

	token, state, appErr := service.EnsureFreshToken(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Empty(t, token)
	assert.Equal(t, TokenStateNeedsReconnect, state)
	assert.Empty(t, repo.connections)
}

func TestEnsureFreshTokenRateLimitedKeepsConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	setCalendarTestConfig(t, server.URL+"/token", server.URL+"/calendars")

	repo := newFakeConnectionRepo()
	service := NewCalendarService(repo)
	userID := uuid.New()
	repo.connections[userID] = expiredConnection(userID, "still-valid-refresh")

	_, state, appErr := service.EnsureFreshToken(context.Background(), userID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrOAuthExchange, appErr.Code)
	assert.Equal(t, TokenStateNeedsReconnect, state)

	// A rate-limited refresh must not delete the connection; the refresh
	// token is still good and the next sweep will retry.
	require.Len(t, repo.connections, 1)
	assert.Equal(t, "still-valid-refresh", repo.connections[userID].RefreshToken)
	assert.Zero(t, repo.deleteCalls)
}

func TestEnsureFreshTokenBadRequestWithoutRevocationKeepsConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"temporarily_unavailable"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	setCalendarTestConfig(t, server.URL+"/token", server.URL+"/calendars")

	repo := newFakeConnectionRepo()
	service := NewCalendarService(repo)
	userID := uuid.New()
	repo.connections[userID] = expiredConnection(userID, "r1")

	_, state, appErr := service.EnsureFreshToken(context.Background(), userID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrOAuthExchange, appErr.Code)
	assert.Equal(t, TokenStateNeedsReconnect, state)
	assert.Len(t, repo.connections, 1)
}

func TestEnsureFreshTokenTransientRefreshFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	setCalendarTestConfig(t, server.URL+"/token", server.URL+"/calendars")

	repo := newFakeConnectionRepo()
	service := NewCalendarService(repo)
	userID := uuid.New()
	repo.connections[userID] = expiredConnection(userID, "r1")

	_, state, appErr := service.EnsureFreshToken(context.Background(), userID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrOAuthExchange, appErr.Code)
	assert.Equal(t, TokenStateNeedsReconnect, state)
	// The connection stays; a retry may succeed.
	assert.Len(t, repo.connections, 1)
}

func TestEnsureFreshTokenExpiredWithoutRefreshToken(t *testing.T) {
	setCalendarTestConfig(t, "http://stub.invalid/token", "http://stub.invalid/calendars")
	repo := newFakeConnectionRepo()
	service := NewCalendarService(repo)
	userID := uuid.New()
	repo.connections[userID] = expiredConnection(userID, "")

	token, state, appErr := service.EnsureFreshToken(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Empty(t, token)
	assert.Equal(t, TokenStateNeedsReconnect, state)
	assert.Empty(t, repo.connections)
}

func TestRefreshExpiringConnectionsSweep(t *testing.T) {
	server := stubGoogle(t,
		`{"access_token":"swept-access","token_type":"Bearer","expires_in":3600}`,
		`{"items":[]}`)
	setCalendarTestConfig(t, server.URL+"/token", server.URL+"/calendars")

	repo := newFakeConnectionRepo()
	service := NewCalendarService(repo)

	expiring := uuid.New()
	healthy := uuid.New()
	repo.connections[expiring] = expiredConnection(expiring, "r1")
	futureExpiry := time.Now().Add(2 * time.Hour)
	repo.connections[healthy] = entity.CalendarConnection{
		UserID:         healthy,
		AccessToken:    "healthy-access",
		RefreshToken:   "r2",
		TokenExpiresAt: &futureExpiry,
	}

	require.NoError(t, service.RefreshExpiringConnections(context.Background(), 30*time.Minute))

	assert.Equal(t, "swept-access", repo.connections[expiring].AccessToken)
	assert.Equal(t, "healthy-access", repo.connections[healthy].AccessToken)
}
