package token

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EnvPrefix is the prefix of the structured token variable
const EnvPrefix = "GIT_TOKEN_"

// EnvVars lists the environment variables consulted, in order.
var EnvVars = []string{"GITHUB_TOKEN", "GH_TOKEN", EnvPrefix + "GITHUB"}

// Resolve returns the token from flagValue if set, otherwise from the first
// non-empty variable in EnvVars. ErrTokenNotFound means none was set.
func Resolve(flagValue string) (Token, error) {
	if v := strings.TrimSpace(flagValue); v != "" {
		return Token{Value: v, Source: SourceFlag}, nil
	}

	for _, name := range EnvVars {
		raw := strings.TrimSpace(os.Getenv(name))
		if raw == "" {
			continue
		}
		t, err := decodeEnvValue(raw)
		if err != nil {
			return Token{}, fmt.Errorf("%s: %w", name, err)
		}
		if IsExpired(t) {
			return Token{}, fmt.Errorf("%s: %w", name, ErrTokenExpired)
		}
		t.Source = name
		return t, nil
	}

	return Token{}, ErrTokenNotFound
}

// decodeEnvValue accepts a bare token or the JSON-encoded Token form.
func decodeEnvValue(raw string) (Token, error) {
	if !strings.HasPrefix(raw, "{") {
		return Token{Value: raw}, nil
	}

	var t Token
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Token{}, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	if !IsValid(t) {
		return Token{}, ErrTokenInvalid
	}
	return t, nil
}
