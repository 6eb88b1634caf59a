package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"practiceflow-api/core/config"
	"practiceflow-api/core/errors"
	"practiceflow-api/core/logger"
	"practiceflow-api/modules/calendar/dto"
)

// fetchCalendarList calls the provider's calendar list endpoint with the
// freshly issued access token.
func (service *calendarService) fetchCalendarList(ctx context.Context, accessToken string) ([]dto.GoogleCalendar, *errors.AppError) {
	cfg, ok := config.GetSafe()
	if !ok {
		return nil, errors.NewAppError(errors.ErrInternalServer, "config not initialized", nil)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", cfg.GoogleAPI.CalendarListURL, nil)
	if err != nil {
		logger.Error("CalendarService:fetchCalendarList:NewRequest:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to create request", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		logger.Error("CalendarService:fetchCalendarList:DoRequest:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to fetch calendar list", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Error("CalendarService:fetchCalendarList:APIError", "status", resp.StatusCode, "body", string(body))
		return nil, errors.NewAppError(errors.ErrInternalServer, fmt.Sprintf("Google Calendar API error: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("CalendarService:fetchCalendarList:ReadBody:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to read response", err)
	}

	var calendarListResponse struct {
		Items []dto.GoogleCalendar `json:"items"`
	}
	if err := json.Unmarshal(body, &calendarListResponse); err != nil {
		logger.Error("CalendarService:fetchCalendarList:Unmarshal:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to parse response", err)
	}

	return calendarListResponse.Items, nil
}
