package github

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	apperrors "github.com/NicabarNimble/go-gitrip/internal/errors"
	"github.com/NicabarNimble/go-gitrip/internal/logger"
	"github.com/NicabarNimble/go-gitrip/internal/progress"
)

// ResolveUpstream looks up the upstream clone URL of a fork. The listing
// endpoints do not embed source/parent, so this costs one request per fork.
func (c *Client) ResolveUpstream(ctx context.Context, d RepositoryDescriptor) (string, error) {
	op := fmt.Sprintf("resolve upstream of %s", d.FullName)

	owner := d.Owner()
	if owner == "" {
		return "", apperrors.New(op, fmt.Errorf("invalid repository format: %s (expected owner/repo)", d.FullName))
	}

	repo, resp, err := c.gh.Repositories.Get(ctx, owner, d.Name)
	if err != nil {
		return "", mapError(op, resp, err)
	}

	if upstream := upstreamCloneURL(repo); upstream != "" {
		return upstream, nil
	}
	return "", apperrors.NewParseError(op, "repository "+d.FullName, "source")
}

// ResolveUpstreams returns a copy of descs with ParentCloneURL filled in for
// every fork. Lookups run sequentially. A failed lookup is logged and leaves
// ParentCloneURL empty so the fork itself gets cloned.
func (c *Client) ResolveUpstreams(ctx context.Context, descs []RepositoryDescriptor, tracker progress.Tracker) []RepositoryDescriptor {
	out := make([]RepositoryDescriptor, len(descs))
	copy(out, descs)

	total := int64(lo.CountBy(descs, func(d RepositoryDescriptor) bool { return d.IsFork }))
	if total == 0 {
		return out
	}

	if tracker != nil {
		tracker.Start("Resolving fork upstreams")
		defer tracker.Complete()
	}

	var done int64
	for i := range out {
		if !out[i].IsFork {
			continue
		}
		if out[i].ParentCloneURL == "" {
			upstream, err := c.ResolveUpstream(ctx, out[i])
			if err != nil {
				logger.Log.Warnf("Falling back to fork %s: %v", out[i].FullName, err)
			} else {
				out[i].ParentCloneURL = upstream
				logger.Log.Debugf("Fork %s tracks %s", out[i].FullName, upstream)
			}
		}

		done++
		if tracker != nil {
			tracker.Update(done, total)
		}
	}
	return out
}
