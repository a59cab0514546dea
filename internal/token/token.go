// Package token resolves the GitHub access token used for API calls and
// HTTPS clones.
//
// Lookup order:
//
//  1. the --token flag
//  2. GITHUB_TOKEN
//  3. GH_TOKEN
//  4. GIT_TOKEN_GITHUB, either a bare token or JSON such as
//     {"Value":"ghp_abc...","ExpiresAt":"2026-01-01T00:00:00Z"}
//
// Running without a token is allowed: public repositories can still be
// listed and cloned, subject to the much lower anonymous rate limit.
package token

import (
	"errors"
	"time"
)

// Common errors that may be returned by token operations
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenInvalid  = errors.New("token is invalid")
	ErrTokenExpired  = errors.New("token has expired")
)

// Token represents an authentication token with metadata
type Token struct {
	// Value is the actual token string
	Value string `json:"Value"`

	// ExpiresAt indicates when the token will expire
	// Zero value means the token does not expire
	ExpiresAt time.Time `json:"ExpiresAt"`

	// Scope is informational; GitHub reports the real scopes per request
	Scope string `json:"Scope"`

	// Source names where the token was found ("flag" or an env var)
	Source string `json:"-"`
}

// SourceFlag marks a token passed on the command line.
const SourceFlag = "flag"

// IsExpired checks if a token has expired
func IsExpired(token Token) bool {
	if token.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(token.ExpiresAt)
}

// IsValid performs basic validation of a token
func IsValid(token Token) bool {
	return token.Value != ""
}
