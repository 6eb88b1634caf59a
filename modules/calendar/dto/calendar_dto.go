package dto

import "time"

// Callback redirect outcomes. The callback endpoint always answers with a
// redirect carrying exactly one of these query strings.
const (
	OutcomeConnected        = "connected=true"
	OutcomeAccessDenied     = "error=access_denied"
	OutcomeMissingParams    = "error=missing_params"
	OutcomeConnectionFailed = "error=connection_failed"
)

type ConnectionStatusResponse struct {
	Connected         bool       `json:"connected"`
	Provider          string     `json:"provider,omitempty"`
	CalendarID        string     `json:"calendar_id,omitempty"`
	CalendarEmail     string     `json:"calendar_email,omitempty"`
	ConnectedAt       *time.Time `json:"connected_at,omitempty"`
	NeedsReconnection bool       `json:"needs_reconnection"`
}

type DisconnectResponse struct {
	Success bool `json:"success"`
}

// GoogleCalendar is one entry of the provider's calendar list.
type GoogleCalendar struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}
