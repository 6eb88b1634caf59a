package service

import (
	"context"
	"testing"
	"time"

	"practiceflow-api/core/errors"
	"practiceflow-api/modules/waitlist/entity"
	"practiceflow-api/modules/waitlist/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWaitlistRepo struct {
	emails    map[string]bool
	lastLead  *entity.Lead
	insertErr error
}

func newFakeWaitlistRepo() *fakeWaitlistRepo {
	return &fakeWaitlistRepo{emails: make(map[string]bool)}
}

func (r *fakeWaitlistRepo) Insert(ctx context.Context, lead *entity.Lead) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if r.emails[lead.Email] {
		return repository.ErrDuplicateEmail
	}
	r.emails[lead.Email] = true
	lead.ID = uuid.New()
	lead.CreatedAt = time.Now()
	r.lastLead = lead
	return nil
}

type fakeRateCache struct {
	counts  map[string]int64
	incrErr error
}

func newFakeRateCache() *fakeRateCache {
	return &fakeRateCache{counts: make(map[string]int64)}
}

func (c *fakeRateCache) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.incrErr != nil {
		return 0, c.incrErr
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *fakeRateCache) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }
func (c *fakeRateCache) Del(ctx context.Context, key string) error                       { return nil }
func (c *fakeRateCache) Ping(ctx context.Context) error                                  { return nil }

func TestJoinNormalizesEmail(t *testing.T) {
	repo := newFakeWaitlistRepo()
	service := NewWaitlistService(repo, newFakeRateCache())

	require.Nil(t, service.Join(context.Background(), "  Jane@Example.COM ", "1.2.3.4"))
	assert.True(t, repo.emails["jane@example.com"])
}

func TestJoinMintsPublicID(t *testing.T) {
	repo := newFakeWaitlistRepo()
	service := NewWaitlistService(repo, newFakeRateCache())

	require.Nil(t, service.Join(context.Background(), "jane@example.com", "1.2.3.4"))
	require.NotNil(t, repo.lastLead)
	assert.Len(t, repo.lastLead.PublicID, 7)
}

func TestJoinRejectsCaseVariantDuplicate(t *testing.T) {
	repo := newFakeWaitlistRepo()
	service := NewWaitlistService(repo, newFakeRateCache())

	require.Nil(t, service.Join(context.Background(), "jane@example.com", "1.2.3.4"))

	appErr := service.Join(context.Background(), "JANE@example.com", "1.2.3.4")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrAlreadyExists, appErr.Code)
}

func TestJoinRejectsInvalidEmail(t *testing.T) {
	service := NewWaitlistService(newFakeWaitlistRepo(), newFakeRateCache())

	for _, email := range []string{"", "   ", "no-at-sign"} {
		appErr := service.Join(context.Background(), email, "1.2.3.4")
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
	}
}

func TestJoinRateLimitsPerClient(t *testing.T) {
	repo := newFakeWaitlistRepo()
	service := NewWaitlistService(repo, newFakeRateCache())

	for i := 0; i < 5; i++ {
		email := string(rune('a'+i)) + "@example.com"
		require.Nil(t, service.Join(context.Background(), email, "1.2.3.4"))
	}

	appErr := service.Join(context.Background(), "f@example.com", "1.2.3.4")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrTooManyRequests, appErr.Code)

	// A different caller is not affected.
	require.Nil(t, service.Join(context.Background(), "g@example.com", "5.6.7.8"))
}

func TestJoinSucceedsWhenCacheIsDown(t *testing.T) {
	cache := newFakeRateCache()
	cache.incrErr = assert.AnError
	service := NewWaitlistService(newFakeWaitlistRepo(), cache)

	require.Nil(t, service.Join(context.Background(), "jane@example.com", "1.2.3.4"))
}
