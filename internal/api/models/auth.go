package models

import "time"

// AuthResult is the body of the register, login and logout endpoints.
// Login carries a guest token when signing is configured.
type AuthResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Placeholder bool   `json:"placeholder,omitempty"`

	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// AuthCheck is the body of GET /api/auth/check.
type AuthCheck struct {
	Authenticated bool       `json:"authenticated"`
	Message       string     `json:"message,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}
