package service

import (
	"context"
	"strings"

	"practiceflow-api/core/cache"
	"practiceflow-api/core/constants"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/logger"
	"practiceflow-api/core/utils"
	"practiceflow-api/modules/waitlist/entity"
	"practiceflow-api/modules/waitlist/repository"
)

type WaitlistService interface {
	Join(ctx context.Context, email string, clientIP string) *errors.AppError
}

type waitlistService struct {
	repo  repository.WaitlistRepository
	cache cache.Cache
}

func NewWaitlistService(repo repository.WaitlistRepository, cache cache.Cache) WaitlistService {
	return &waitlistService{repo: repo, cache: cache}
}

// Join records a lead. Emails are normalized (lowercased, trimmed) before
// the unique check so case and whitespace variants count as duplicates, and
// duplicates are rejected rather than upserted. The endpoint is public, so
// submissions are rate limited per caller address.
func (service *waitlistService) Join(ctx context.Context, email string, clientIP string) *errors.AppError {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" || !strings.Contains(normalized, "@") {
		return errors.NewAppError(errors.ErrInvalidInput, "a valid email is required", nil)
	}

	rateKey := constants.RedisKeyWaitlistRate + clientIP
	count, err := service.cache.IncrementWithTTL(ctx, rateKey, constants.WaitlistRateWindow)
	if err != nil {
		// Rate limiting is best effort; a cache outage must not block signups.
		logger.Warn("WaitlistService:Join:RateLimit:Error", "error", err)
	} else if count > constants.WaitlistRateLimit {
		return errors.NewAppError(errors.ErrTooManyRequests, "too many signups, try again later", nil)
	}

	lead := &entity.Lead{PublicID: utils.GenerateID(), Email: normalized}
	if err := service.repo.Insert(ctx, lead); err != nil {
		if err == repository.ErrDuplicateEmail {
			return errors.NewAppError(errors.ErrAlreadyExists, "email already on waitlist", nil)
		}
		logger.Error("WaitlistService:Join:Insert:Error", "error", err)
		return errors.NewAppError(errors.ErrInternalServer, "failed to join waitlist", err)
	}

	logger.Info("WaitlistService:Join:Added", "lead_id", lead.ID, "public_id", lead.PublicID)
	return nil
}
