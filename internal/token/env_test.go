package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearTokenEnv(t *testing.T) {
	t.Helper()
	for _, name := range EnvVars {
		t.Setenv(name, "")
	}
}

func TestResolve(t *testing.T) {
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	tests := []struct {
		name       string
		flag       string
		env        map[string]string
		wantValue  string
		wantSource string
		wantErr    error
	}{
		{
			name:       "flag wins over environment",
			flag:       "ghp_flag",
			env:        map[string]string{"GITHUB_TOKEN": "ghp_env"},
			wantValue:  "ghp_flag",
			wantSource: SourceFlag,
		},
		{
			name:       "GITHUB_TOKEN",
			env:        map[string]string{"GITHUB_TOKEN": "ghp_env", "GH_TOKEN": "ghp_gh"},
			wantValue:  "ghp_env",
			wantSource: "GITHUB_TOKEN",
		},
		{
			name:       "GH_TOKEN fallback",
			env:        map[string]string{"GH_TOKEN": " ghp_gh \n"},
			wantValue:  "ghp_gh",
			wantSource: "GH_TOKEN",
		},
		{
			name:       "structured GIT_TOKEN_GITHUB",
			env:        map[string]string{"GIT_TOKEN_GITHUB": `{"Value":"ghp_json","ExpiresAt":"` + future + `"}`},
			wantValue:  "ghp_json",
			wantSource: "GIT_TOKEN_GITHUB",
		},
		{
			name:       "bare GIT_TOKEN_GITHUB",
			env:        map[string]string{"GIT_TOKEN_GITHUB": "ghp_bare"},
			wantValue:  "ghp_bare",
			wantSource: "GIT_TOKEN_GITHUB",
		},
		{
			name:    "expired structured token",
			env:     map[string]string{"GIT_TOKEN_GITHUB": `{"Value":"ghp_old","ExpiresAt":"` + past + `"}`},
			wantErr: ErrTokenExpired,
		},
		{
			name:    "structured token without value",
			env:     map[string]string{"GIT_TOKEN_GITHUB": `{"Scope":"repo"}`},
			wantErr: ErrTokenInvalid,
		},
		{
			name:    "nothing set",
			wantErr: ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTokenEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Resolve(tt.flag)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, got.Value)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}
}

func TestResolve_MalformedJSON(t *testing.T) {
	clearTokenEnv(t)
	t.Setenv("GIT_TOKEN_GITHUB", `{"Value":`)

	_, err := Resolve("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GIT_TOKEN_GITHUB")
}

func TestIsExpired(t *testing.T) {
	assert.False(t, IsExpired(Token{Value: "x"}))
	assert.False(t, IsExpired(Token{Value: "x", ExpiresAt: time.Now().Add(time.Minute)}))
	assert.True(t, IsExpired(Token{Value: "x", ExpiresAt: time.Now().Add(-time.Minute)}))
}
