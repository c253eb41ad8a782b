package types

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// MeResponse is the signed-in user plus a flag telling the UI to prompt a Microsoft re-login.
type MeResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Provider   string `json:"provider,omitempty"`
	TokenError string `json:"tokenError,omitempty"`
}

// UserSummary is the minimal shape returned to non-admins picking an assignee.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SharePointTestResponse struct {
	SiteID string `json:"siteId"`
	Drives any    `json:"drives"`
}
