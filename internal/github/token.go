package github

import (
	"context"
	"strings"

	apperrors "github.com/NicabarNimble/go-gitrip/internal/errors"
)

// Identity describes the account behind a token.
type Identity struct {
	Login  string
	Scopes []string // empty for fine-grained tokens
}

// HasScope reports whether the classic token carries scope.
func (i *Identity) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// VerifyToken calls GET /user so a bad token fails before any listing or
// cloning starts.
func (c *Client) VerifyToken(ctx context.Context) (*Identity, error) {
	const op = "verify token"

	user, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, mapError(op, resp, err)
	}
	if user.GetLogin() == "" {
		return nil, apperrors.NewParseError(op, "user", "login")
	}

	return &Identity{
		Login:  user.GetLogin(),
		Scopes: parseScopes(resp.Header.Get("X-OAuth-Scopes")),
	}, nil
}

// parseScopes splits the comma separated X-OAuth-Scopes header.
func parseScopes(header string) []string {
	var scopes []string
	for _, s := range strings.Split(header, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
