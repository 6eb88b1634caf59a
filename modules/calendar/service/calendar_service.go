package service

import (
	"context"
	"time"

	"practiceflow-api/core/config"
	"practiceflow-api/core/constants"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/logger"
	"practiceflow-api/modules/calendar/dto"
	"practiceflow-api/modules/calendar/entity"
	"practiceflow-api/modules/calendar/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type CalendarService interface {
	BuildAuthorizationURL(ctx context.Context, userID uuid.UUID) (string, *errors.AppError)
	HandleCallback(ctx context.Context, code string, state string, errParam string) string
	Disconnect(ctx context.Context, userID uuid.UUID) *errors.AppError
	GetConnectionStatus(ctx context.Context, userID uuid.UUID) (*dto.ConnectionStatusResponse, *errors.AppError)
	EnsureFreshToken(ctx context.Context, userID uuid.UUID) (string, TokenState, *errors.AppError)
	RefreshExpiringConnections(ctx context.Context, within time.Duration) error
}

type calendarService struct {
	repo repository.ConnectionRepository
}

func NewCalendarService(repo repository.ConnectionRepository) CalendarService {
	return &calendarService{repo: repo}
}

// oauthConfig builds the provider config. Endpoint URLs come from config so
// tests can point the flow at stub servers.
func (service *calendarService) oauthConfig() (*oauth2.Config, *errors.AppError) {
	cfg, ok := config.GetSafe()
	if !ok {
		return nil, errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	if cfg.GoogleAPI.ClientID == "" || cfg.GoogleAPI.ClientSecret == "" || cfg.GoogleAPI.RedirectURI == "" {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Google OAuth configuration is missing", nil)
	}

	endpoint := google.Endpoint
	if cfg.GoogleAPI.AuthURL != "" && cfg.GoogleAPI.TokenURL != "" {
		endpoint = oauth2.Endpoint{
			AuthURL:  cfg.GoogleAPI.AuthURL,
			TokenURL: cfg.GoogleAPI.TokenURL,
		}
	}

	return &oauth2.Config{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		RedirectURL:  cfg.GoogleAPI.RedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/calendar.events",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: endpoint,
	}, nil
}

// BuildAuthorizationURL returns the provider consent URL for an authenticated
// user. The user id rides in the OAuth state parameter and is what the
// callback later keys the upsert on. access_type=offline plus prompt=consent
// forces Google to reissue a refresh token even on reconnection.
func (service *calendarService) BuildAuthorizationURL(ctx context.Context, userID uuid.UUID) (string, *errors.AppError) {
	if userID == uuid.Nil {
		return "", errors.NewAppError(errors.ErrUnauthorized, "authentication required", nil)
	}

	oauthConfig, appErr := service.oauthConfig()
	if appErr != nil {
		return "", appErr
	}

	authURL := oauthConfig.AuthCodeURL(userID.String(), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return authURL, nil
}

// HandleCallback runs the authorization-code exchange and returns the single
// redirect outcome the callback endpoint answers with. Provider and database
// errors are logged here and never reach the redirect target.
func (service *calendarService) HandleCallback(ctx context.Context, code string, state string, errParam string) string {
	if errParam != "" {
		logger.Warn("CalendarService:HandleCallback:ConsentDenied", "error", errParam)
		return dto.OutcomeAccessDenied
	}

	if code == "" || state == "" {
		logger.Warn("CalendarService:HandleCallback:MissingParams", "has_code", code != "", "has_state", state != "")
		return dto.OutcomeMissingParams
	}

	userID, err := uuid.Parse(state)
	if err != nil {
		logger.Error("CalendarService:HandleCallback:InvalidState:Error", "error", err, "state", state)
		return dto.OutcomeConnectionFailed
	}

	if appErr := service.exchangeCodeForTokens(ctx, code, userID); appErr != nil {
		return dto.OutcomeConnectionFailed
	}

	return dto.OutcomeConnected
}

// exchangeCodeForTokens exchanges the authorization code, resolves the
// primary calendar and upserts the connection row for userID.
func (service *calendarService) exchangeCodeForTokens(ctx context.Context, code string, userID uuid.UUID) *errors.AppError {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	oauthConfig, appErr := service.oauthConfig()
	if appErr != nil {
		logger.Error("CalendarService:exchangeCodeForTokens:Config:Error", "error", appErr)
		return appErr
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		logger.Error("CalendarService:exchangeCodeForTokens:Exchange:Error", "error", err, "user_id", userID)
		return errors.NewAppError(errors.ErrOAuthExchange, "failed to exchange authorization code", err)
	}
	if token.AccessToken == "" {
		logger.Error("CalendarService:exchangeCodeForTokens:EmptyAccessToken", "user_id", userID)
		return errors.NewAppError(errors.ErrOAuthExchange, "provider returned no access token", nil)
	}

	// Primary calendar, else the first one, else none. A list failure is not
	// fatal: the tokens are the valuable part of the connection.
	calendarID, calendarEmail := "", ""
	calendars, appErr := service.fetchCalendarList(ctx, token.AccessToken)
	if appErr != nil {
		logger.Warn("CalendarService:exchangeCodeForTokens:CalendarListUnavailable", "user_id", userID)
	} else if selected := pickCalendar(calendars); selected != nil {
		calendarID = selected.ID
		calendarEmail = selected.ID
	}

	now := time.Now()
	conn := &entity.CalendarConnection{
		UserID:        userID,
		Provider:      entity.ProviderGoogle,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		CalendarID:    calendarID,
		CalendarEmail: calendarEmail,
		ConnectedAt:   now,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		conn.TokenExpiresAt = &expiry
	}

	if err := service.repo.Upsert(ctx, conn); err != nil {
		// The provider issued tokens that we could not record: they go unused
		// and expire on their own, but this must be distinguishable in logs
		// from a failed exchange.
		logger.Error("CalendarService:exchangeCodeForTokens:StrandedToken",
			"error", err,
			"user_id", userID,
			"has_refresh_token", token.RefreshToken != "")
		return errors.NewAppError(errors.ErrPersistence, "failed to store calendar connection", err)
	}

	logger.Info("CalendarService:exchangeCodeForTokens:Connected",
		"user_id", userID,
		"calendar_id", calendarID,
		"has_refresh_token", token.RefreshToken != "",
		"expires_at", token.Expiry)
	return nil
}

// pickCalendar selects the calendar flagged primary, else the first entry.
func pickCalendar(calendars []dto.GoogleCalendar) *dto.GoogleCalendar {
	for i := range calendars {
		if calendars[i].Primary {
			return &calendars[i]
		}
	}
	if len(calendars) > 0 {
		return &calendars[0]
	}
	return nil
}

// Disconnect removes the user's connection. Removing a connection that does
// not exist succeeds.
func (service *calendarService) Disconnect(ctx context.Context, userID uuid.UUID) *errors.AppError {
	if userID == uuid.Nil {
		return errors.NewAppError(errors.ErrUnauthorized, "authentication required", nil)
	}

	if err := service.repo.Delete(ctx, userID); err != nil {
		logger.Error("CalendarService:Disconnect:Delete:Error", "error", err, "user_id", userID)
		return errors.NewAppError(errors.ErrStoreUnavailable, "failed to disconnect calendar", err)
	}
	return nil
}

func (service *calendarService) GetConnectionStatus(ctx context.Context, userID uuid.UUID) (*dto.ConnectionStatusResponse, *errors.AppError) {
	conn, err := service.repo.GetByUserID(ctx, userID)
	if err != nil {
		logger.Error("CalendarService:GetConnectionStatus:Get:Error", "error", err, "user_id", userID)
		return nil, errors.NewAppError(errors.ErrStoreUnavailable, "failed to load calendar connection", err)
	}

	if conn == nil {
		return &dto.ConnectionStatusResponse{Connected: false}, nil
	}

	connectedAt := conn.ConnectedAt
	return &dto.ConnectionStatusResponse{
		Connected:         true,
		Provider:          conn.Provider,
		CalendarID:        conn.CalendarID,
		CalendarEmail:     conn.CalendarEmail,
		ConnectedAt:       &connectedAt,
		NeedsReconnection: conn.TokenExpired(time.Now()) && conn.RefreshToken == "",
	}, nil
}
