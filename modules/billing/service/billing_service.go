package service

import (
	"context"
	"encoding/json"
	"time"

	"practiceflow-api/core/config"
	"practiceflow-api/core/constants"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/logger"
	"practiceflow-api/modules/billing/dto"
	"practiceflow-api/modules/billing/repository"

	"github.com/google/uuid"
)

const eventCheckoutCompleted = "checkout.session.completed"

// metadata key carried on checkout sessions alongside client_reference_id,
// kept for compatibility with events produced by earlier deployments.
const metadataUserIDKey = "supabase_user_id"

type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, priceID string) (*dto.CheckoutSessionResponse, *errors.AppError)
	HandleWebhookEvent(ctx context.Context, rawBody []byte, signatureHeader string) *errors.AppError
	CreatePortalSession(ctx context.Context, userID uuid.UUID) (*dto.PortalSessionResponse, *errors.AppError)
	GetEntitlement(ctx context.Context, userID uuid.UUID) (*dto.EntitlementResponse, *errors.AppError)
}

type billingService struct {
	repo   repository.EntitlementRepository
	stripe *stripeClient
	now    func() time.Time
}

func NewBillingService(repo repository.EntitlementRepository) BillingService {
	cfg := config.Get()
	return &billingService{
		repo:   repo,
		stripe: newStripeClient(cfg.Stripe.APIBase, cfg.Stripe.SecretKey),
		now:    time.Now,
	}
}

// CreateCheckoutSession creates a subscription-mode hosted checkout session
// bound to the internal user id. Nothing changes locally; the entitlement
// only moves when the webhook arrives.
func (service *billingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, priceID string) (*dto.CheckoutSessionResponse, *errors.AppError) {
	if userID == uuid.Nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "authentication required", nil)
	}
	if priceID == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "priceId is required", nil)
	}

	cfg, ok := config.GetSafe()
	if !ok {
		return nil, errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Stripe configuration is missing", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	session, err := service.stripe.createCheckoutSession(ctx, checkoutSessionParams{
		PriceID:           priceID,
		ClientReferenceID: userID.String(),
		UserID:            userID.String(),
		SuccessURL:        cfg.Stripe.SuccessURL,
		CancelURL:         cfg.Stripe.CancelURL,
	})
	if err != nil {
		logger.Error("BillingService:CreateCheckoutSession:Create:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create checkout session", err)
	}

	logger.Info("BillingService:CreateCheckoutSession:Created", "user_id", userID, "session_id", session.ID)
	return &dto.CheckoutSessionResponse{URL: session.URL}, nil
}

// HandleWebhookEvent verifies and reconciles one inbound provider event.
// Verification runs against the raw body before anything is parsed or
// mutated. Only checkout.session.completed changes state; every other type
// is acknowledged as a forward-compatible no-op. Malformed events are also
// acknowledged, because the provider retries on non-2xx and a retry cannot
// fix a malformed payload; only a persistence failure returns an error so
// the provider redelivers.
func (service *billingService) HandleWebhookEvent(ctx context.Context, rawBody []byte, signatureHeader string) *errors.AppError {
	cfg, ok := config.GetSafe()
	if !ok {
		return errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	if err := verifyWebhookSignature(rawBody, signatureHeader, cfg.Stripe.WebhookSecret, service.now()); err != nil {
		// Logged distinctly: a signature failure on this endpoint is a
		// security event, not an operational one.
		logger.Warn("BillingService:HandleWebhookEvent:InvalidSignature", "error", err)
		return errors.NewAppError(errors.ErrInvalidSignature, "webhook signature verification failed", err)
	}

	var event stripeEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		logger.Warn("BillingService:HandleWebhookEvent:UnparseableEvent", "error", err)
		return nil
	}

	if event.Type != eventCheckoutCompleted {
		logger.Info("BillingService:HandleWebhookEvent:Ignored", "type", event.Type, "event_id", event.ID)
		return nil
	}

	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		logger.Warn("BillingService:HandleWebhookEvent:UnparseableSession", "error", err, "event_id", event.ID)
		return nil
	}

	userIDStr := session.ClientReferenceID
	if userIDStr == "" {
		userIDStr = session.Metadata[metadataUserIDKey]
	}
	if userIDStr == "" {
		logger.Warn("BillingService:HandleWebhookEvent:NoUserReference", "event_id", event.ID, "session_id", session.ID)
		return nil
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		logger.Warn("BillingService:HandleWebhookEvent:InvalidUserReference", "error", err, "event_id", event.ID)
		return nil
	}

	var customerID *string
	if session.Customer != "" {
		customer := session.Customer
		customerID = &customer
	}

	found, err := service.repo.MarkPaid(ctx, userID, customerID)
	if err != nil {
		logger.Error("BillingService:HandleWebhookEvent:MarkPaid:Error", "error", err, "user_id", userID, "event_id", event.ID)
		return errors.NewAppError(errors.ErrPersistence, "failed to apply entitlement update", err)
	}
	if !found {
		logger.Warn("BillingService:HandleWebhookEvent:ProfileNotFound", "user_id", userID, "event_id", event.ID)
		return nil
	}

	logger.Info("BillingService:HandleWebhookEvent:Reconciled",
		"user_id", userID,
		"event_id", event.ID,
		"has_customer", customerID != nil)
	return nil
}

// CreatePortalSession creates a hosted billing-management redirect for a
// user who already has a payment-provider customer.
func (service *billingService) CreatePortalSession(ctx context.Context, userID uuid.UUID) (*dto.PortalSessionResponse, *errors.AppError) {
	if userID == uuid.Nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "authentication required", nil)
	}

	profile, err := service.repo.GetProfile(ctx, userID)
	if err != nil {
		logger.Error("BillingService:CreatePortalSession:GetProfile:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load profile", err)
	}
	if profile == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "profile not found", nil)
	}
	if profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		// No provider call happens for users who never checked out.
		return nil, errors.NewAppError(errors.ErrNoSubscription, "no billing customer for this account", nil)
	}

	cfg, ok := config.GetSafe()
	if !ok {
		return nil, errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	session, err := service.stripe.createPortalSession(ctx, *profile.StripeCustomerID, cfg.Stripe.PortalReturn)
	if err != nil {
		logger.Error("BillingService:CreatePortalSession:Create:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create portal session", err)
	}

	return &dto.PortalSessionResponse{URL: session.URL}, nil
}

// GetEntitlement is the read the post-checkout poller loops on.
func (service *billingService) GetEntitlement(ctx context.Context, userID uuid.UUID) (*dto.EntitlementResponse, *errors.AppError) {
	profile, err := service.repo.GetProfile(ctx, userID)
	if err != nil {
		logger.Error("BillingService:GetEntitlement:GetProfile:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load profile", err)
	}
	if profile == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "profile not found", nil)
	}

	return &dto.EntitlementResponse{
		Plan:        string(profile.Plan),
		HasCustomer: profile.StripeCustomerID != nil && *profile.StripeCustomerID != "",
	}, nil
}
