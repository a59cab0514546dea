package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v55/github"
	"github.com/samber/lo"
	"golang.org/x/oauth2"

	apperrors "github.com/NicabarNimble/go-gitrip/internal/errors"
	"github.com/NicabarNimble/go-gitrip/internal/urlutils"
)

const (
	apiBaseURL     = "https://api.github.com/"
	userAgent      = "go-gitrip/1.0"
	defaultPerPage = 100
	requestTimeout = 30 * time.Second
)

// Mode selects which repositories of a user are listed.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeStarred Mode = "starred"
)

// ParseMode validates a mode argument.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAll, ModeStarred:
		return m, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected %q or %q)", s, ModeAll, ModeStarred)
	}
}

// RepositoryDescriptor is the validated subset of a GitHub repository object
// needed to clone it. Values are immutable once fetched; the fork resolver
// returns modified copies.
type RepositoryDescriptor struct {
	Name           string
	FullName       string
	CloneURL       string
	IsFork         bool
	ParentCloneURL string // empty until resolved
	SizeHintKB     *int   // nil when the API did not report a size
	Stars          int
	Forks          int
}

// Owner returns the owner half of FullName.
func (d RepositoryDescriptor) Owner() string {
	owner, _, err := ParseRepo(d.FullName)
	if err != nil {
		return ""
	}
	return owner
}

// SizeBytes converts the size hint to bytes.
func (d RepositoryDescriptor) SizeBytes() (int64, bool) {
	if d.SizeHintKB == nil {
		return 0, false
	}
	return int64(*d.SizeHintKB) * 1024, true
}

// Client lists repositories and resolves fork upstreams
type Client struct {
	gh      *gh.Client
	perPage int
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at a different API root (tests, GHE Cloud).
func WithBaseURL(rawURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(rawURL, "/") {
			rawURL += "/"
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid API base URL: %w", err)
		}
		c.gh.BaseURL = u
		return nil
	}
}

// WithPerPage overrides the page size requested from the API.
func WithPerPage(n int) Option {
	return func(c *Client) error {
		if n < 1 || n > defaultPerPage {
			return fmt.Errorf("page size must be between 1 and %d", defaultPerPage)
		}
		c.perPage = n
		return nil
	}
}

// NewClient creates an API client. An empty token yields an anonymous client.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	httpClient := &http.Client{Timeout: requestTimeout}
	if token != "" {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   http.DefaultTransport,
		}
	}

	client := &Client{
		gh:      gh.NewClient(httpClient),
		perPage: defaultPerPage,
	}
	client.gh.UserAgent = userAgent

	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// ListRepositories returns every repository of username in the given mode,
// following pagination to the end. Duplicates (by full name) are dropped,
// keeping the first occurrence.
//
// Paging stops at the first empty page. When the server sends no Link
// header, a page shorter than the requested size is treated as the last.
func (c *Client) ListRepositories(ctx context.Context, username string, mode Mode) ([]RepositoryDescriptor, error) {
	op := fmt.Sprintf("list %s repositories of %s", mode, username)

	var all []RepositoryDescriptor
	page := 1
	for {
		repos, resp, err := c.fetchPage(ctx, username, mode, page)
		if err != nil {
			return nil, mapError(op, resp, err)
		}
		if len(repos) == 0 {
			break
		}

		for i, repo := range repos {
			desc, err := toDescriptor(op, repo)
			if err != nil {
				return nil, fmt.Errorf("page %d item %d: %w", page, i, err)
			}
			all = append(all, desc)
		}

		next := resp.NextPage
		if next == 0 {
			if len(repos) < c.perPage {
				break
			}
			next = page + 1
		}
		if next <= page {
			break
		}
		page = next
	}

	return lo.UniqBy(all, func(d RepositoryDescriptor) string {
		return strings.ToLower(d.FullName)
	}), nil
}

func (c *Client) fetchPage(ctx context.Context, username string, mode Mode, page int) ([]*gh.Repository, *gh.Response, error) {
	listOpts := gh.ListOptions{Page: page, PerPage: c.perPage}

	switch mode {
	case ModeStarred:
		starred, resp, err := c.gh.Activity.ListStarred(ctx, username, &gh.ActivityListStarredOptions{ListOptions: listOpts})
		if err != nil {
			return nil, resp, err
		}
		repos := lo.Map(starred, func(s *gh.StarredRepository, _ int) *gh.Repository {
			return s.GetRepository()
		})
		return repos, resp, nil
	case ModeAll:
		return c.gh.Repositories.List(ctx, username, &gh.RepositoryListOptions{ListOptions: listOpts})
	default:
		return nil, nil, fmt.Errorf("unsupported mode %q", mode)
	}
}

// toDescriptor validates the fields a clone depends on.
func toDescriptor(op string, repo *gh.Repository) (RepositoryDescriptor, error) {
	if repo == nil {
		return RepositoryDescriptor{}, apperrors.NewParseError(op, "starred entry", "repo")
	}
	name := repo.GetName()
	if name == "" {
		return RepositoryDescriptor{}, apperrors.NewParseError(op, "repository", "name")
	}
	if !urlutils.ValidRepoName(name) {
		return RepositoryDescriptor{}, apperrors.NewParseError(op, fmt.Sprintf("repository %q", name), "name")
	}
	if repo.GetCloneURL() == "" {
		return RepositoryDescriptor{}, apperrors.NewParseError(op, fmt.Sprintf("repository %q", name), "clone_url")
	}

	desc := RepositoryDescriptor{
		Name:           name,
		FullName:       repo.GetFullName(),
		CloneURL:       repo.GetCloneURL(),
		IsFork:         repo.GetFork(),
		ParentCloneURL: upstreamCloneURL(repo),
		Stars:          repo.GetStargazersCount(),
		Forks:          repo.GetForksCount(),
	}
	if desc.FullName == "" {
		if login := repo.GetOwner().GetLogin(); login != "" {
			desc.FullName = login + "/" + name
		} else {
			desc.FullName = name
		}
	}
	if repo.Size != nil {
		size := *repo.Size
		desc.SizeHintKB = &size
	}
	return desc, nil
}

// upstreamCloneURL prefers the root of the fork network over the direct parent.
func upstreamCloneURL(repo *gh.Repository) string {
	if u := repo.GetSource().GetCloneURL(); u != "" {
		return u
	}
	return repo.GetParent().GetCloneURL()
}

// mapError converts a go-github failure into the APIError taxonomy.
func mapError(op string, resp *gh.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return apperrors.NewTransportError(op, err)
	}

	message := resp.Status
	var errResp *gh.ErrorResponse
	var rateErr *gh.RateLimitError
	switch {
	case errors.As(err, &errResp) && errResp.Message != "":
		message = errResp.Message
	case errors.As(err, &rateErr):
		message = rateErr.Message
	}

	if resp.StatusCode < http.StatusBadRequest {
		return &apperrors.APIError{
			Op:      op,
			Kind:    apperrors.KindParse,
			Status:  resp.StatusCode,
			Message: "failed to decode response",
			Err:     err,
		}
	}
	return apperrors.NewHTTPError(op, resp.StatusCode, message, err)
}

// ParseRepo parses an owner/repo string into separate owner and repo parts
func ParseRepo(repoString string) (owner, repo string, err error) {
	parts := strings.Split(repoString, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s (expected owner/repo)", repoString)
	}
	return parts[0], parts[1], nil
}
