// Package urlutils provides helpers for GitHub clone URLs: validation,
// embedding an access token for HTTPS clones, and scrubbing that token back
// out of anything that gets printed.
package urlutils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidURL indicates that the provided URL is not valid
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrInvalidHost indicates that the host is not a GitHub host
	ErrInvalidHost = errors.New("invalid GitHub host")

	// ErrInvalidPath indicates that the URL path is not a valid repository path
	ErrInvalidPath = errors.New("invalid repository path")

	// ErrEmptyToken indicates that an empty token was provided
	ErrEmptyToken = errors.New("empty token provided")

	// ErrNotHTTPS indicates that the URL does not use HTTPS protocol
	ErrNotHTTPS = errors.New("URL must use HTTPS protocol")

	ownerRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)
	repoRegex  = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,100}$`)
)

// redacted replaces tokens in user-visible text.
const redacted = "***"

// ValidOwner reports whether name is a syntactically valid GitHub login.
func ValidOwner(name string) bool {
	return ownerRegex.MatchString(name)
}

// ValidRepoName reports whether name is usable as a repository (and directory) name.
func ValidRepoName(name string) bool {
	return repoRegex.MatchString(name) && name != "." && name != ".."
}

// ParseHTTPSURL parses and validates a GitHub clone URL of the form
// https://github.com/owner/repo(.git). Any credentials in the URL are dropped.
func ParseHTTPSURL(rawURL string) (*url.URL, error) {
	if strings.HasPrefix(rawURL, "git@") {
		return nil, ErrNotHTTPS
	}
	if !strings.HasPrefix(rawURL, "https://") {
		return nil, ErrInvalidURL
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	parsedURL.User = nil

	if !isGitHubHost(parsedURL.Host) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHost, parsedURL.Host)
	}

	pathParts := strings.Split(strings.Trim(strings.TrimSuffix(parsedURL.Path, ".git"), "/"), "/")
	if len(pathParts) != 2 {
		return nil, fmt.Errorf("%w: URL must include owner and repository", ErrInvalidPath)
	}
	if !ValidOwner(pathParts[0]) {
		return nil, fmt.Errorf("%w: invalid owner name format", ErrInvalidPath)
	}
	if !ValidRepoName(pathParts[1]) {
		return nil, fmt.Errorf("%w: invalid repository name format", ErrInvalidPath)
	}

	return parsedURL, nil
}

// FormatTokenURL returns a copy of parsedURL with the token as its user info.
// The original URL is not modified.
func FormatTokenURL(parsedURL *url.URL, token string) (*url.URL, error) {
	if parsedURL == nil {
		return nil, fmt.Errorf("%w: nil URL provided", ErrInvalidURL)
	}
	if token == "" {
		return nil, ErrEmptyToken
	}

	tokenURL := *parsedURL
	tokenURL.User = url.User(token)
	return &tokenURL, nil
}

// WithToken embeds token into a GitHub https clone URL. URLs that do not
// pass ParseHTTPSURL, and any URL when token is empty, are returned
// unchanged so the credential never leaves GitHub.
func WithToken(rawURL, token string) string {
	if token == "" {
		return rawURL
	}
	parsedURL, err := ParseHTTPSURL(rawURL)
	if err != nil {
		return rawURL
	}
	tokenURL, err := FormatTokenURL(parsedURL, token)
	if err != nil {
		return rawURL
	}
	return tokenURL.String()
}

// Redact removes token, and any user info embedded in URLs, from s.
func Redact(s, token string) string {
	if token != "" {
		s = strings.ReplaceAll(s, token, redacted)
	}
	return userInfoRegex.ReplaceAllString(s, "${1}"+redacted+"@")
}

var userInfoRegex = regexp.MustCompile(`(https?://)[^/@\s'"]+@`)

// isGitHubHost accepts github.com and GitHub Enterprise Cloud subdomains.
func isGitHubHost(host string) bool {
	return host == "github.com" || strings.HasSuffix(host, ".github.com")
}
