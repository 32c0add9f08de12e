// Package auth provides placeholder guest sessions. Login issues a signed
// guest token without checking credentials; there is no user store.
package auth

import "time"

// Session is returned by a successful login.
type Session struct {
	// AccessToken is the guest JWT.
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the number of seconds until the token expires.
	ExpiresIn int64 `json:"expires_in"`

	// Subject is the guest identifier carried by the token.
	Subject string `json:"subject"`
}

// Status describes the caller's authentication state.
type Status struct {
	Authenticated bool
	Subject       string
	ExpiresAt     time.Time
}
