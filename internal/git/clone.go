package git

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/NicabarNimble/go-gitrip/internal/errors"
	"github.com/NicabarNimble/go-gitrip/internal/github"
	"github.com/NicabarNimble/go-gitrip/internal/logger"
	"github.com/NicabarNimble/go-gitrip/internal/urlutils"
)

// Step names the phase of a clone that produced a failure.
type Step string

const (
	StepClone Step = "clone"
	StepLFS   Step = "lfs"
)

// CloneTask describes one repository to clone.
type CloneTask struct {
	Descriptor github.RepositoryDescriptor
	URL        string // effective clone URL
	TargetPath string
	Depth      int // 0 clones full history
	LFS        bool
	Upstream   bool // URL points at the fork's upstream
}

// CloneResult is the outcome of exactly one CloneTask.
type CloneResult struct {
	Task         CloneTask
	Succeeded    bool
	Step         Step // failing step, empty on success
	ErrorMessage string
	Err          error
	Duration     time.Duration
}

// DurationSeconds returns the elapsed clone time in seconds.
func (r CloneResult) DurationSeconds() float64 {
	return r.Duration.Seconds()
}

// Cloner is satisfied by Executor and by test fakes.
type Cloner interface {
	Clone(ctx context.Context, task CloneTask) CloneResult
}

var (
	// cloneEnv keeps git from prompting and defers LFS downloads to the pull step.
	cloneEnv = []string{"GIT_TERMINAL_PROMPT=0", "GIT_LFS_SKIP_SMUDGE=1"}
	lfsEnv   = []string{"GIT_TERMINAL_PROMPT=0"}
)

// Executor clones repositories with the git binary
type Executor struct {
	Runner Runner
	Token  string // embedded in https clone URLs when set
}

// NewExecutor returns an Executor backed by the system git.
func NewExecutor(token string) *Executor {
	return &Executor{Runner: ExecRunner{}, Token: token}
}

// Clone runs the task and never returns an error: failures are described
// by the result.
func (e *Executor) Clone(ctx context.Context, task CloneTask) CloneResult {
	start := time.Now()
	err := e.clone(ctx, task)

	result := CloneResult{
		Task:      task,
		Succeeded: err == nil,
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Err = err
		result.ErrorMessage = err.Error()
		result.Step = StepClone
		if apperrors.IsLFSFailure(err) {
			result.Step = StepLFS
		}
	}
	return result
}

func (e *Executor) clone(ctx context.Context, task CloneTask) error {
	repo := task.Descriptor.FullName
	if repo == "" {
		repo = task.Descriptor.Name
	}

	if task.URL == "" || task.TargetPath == "" {
		return apperrors.NewCloneFailure(repo, 0, "", fmt.Errorf("task needs both a URL and a target path"))
	}

	occupied, err := isOccupied(task.TargetPath)
	if err != nil {
		return apperrors.NewCloneFailure(repo, 0, "", err)
	}
	if occupied {
		return apperrors.NewCloneFailure(repo, 0,
			fmt.Sprintf("destination path '%s' already exists and is not an empty directory", task.TargetPath), nil)
	}

	if err := os.MkdirAll(filepath.Dir(task.TargetPath), 0755); err != nil {
		return apperrors.NewCloneFailure(repo, 0, "", fmt.Errorf("failed to create parent directory: %w", err))
	}

	cloneURL := urlutils.WithToken(task.URL, e.Token)
	stderr, code, err := e.runner().Run(ctx, "", cloneEnv, cloneArgs(task, cloneURL)...)
	if err != nil {
		return apperrors.NewCloneFailure(repo, code, e.failureDetail(stderr), err)
	}

	if task.LFS {
		stderr, code, err = e.runner().Run(ctx, task.TargetPath, lfsEnv, "lfs", "pull")
		if err != nil {
			lfsErr := apperrors.NewLFSFailure(repo, code, e.failureDetail(stderr), err)
			if cloneURL != task.URL {
				if scrubErr := e.resetOrigin(ctx, repo, task); scrubErr != nil {
					logger.Log.Warnf("%v", scrubErr)
				}
			}
			return lfsErr
		}
	}

	// git stores the clone URL as remote.origin.url; keep the token out of .git/config.
	if cloneURL != task.URL {
		return e.resetOrigin(ctx, repo, task)
	}
	return nil
}

func (e *Executor) resetOrigin(ctx context.Context, repo string, task CloneTask) error {
	stderr, code, err := e.runner().Run(ctx, task.TargetPath, lfsEnv, "remote", "set-url", "origin", task.URL)
	if err != nil {
		return apperrors.NewCloneFailure(repo, code, e.failureDetail(stderr),
			fmt.Errorf("failed to remove credentials from origin: %w", err))
	}
	return nil
}

// failureDetail redacts stderr and drops git's progress chatter, which is
// printed before the fatal line on every remote failure.
func (e *Executor) failureDetail(stderr string) string {
	var kept []string
	for _, line := range strings.Split(urlutils.Redact(stderr, e.Token), "\n") {
		line = strings.TrimSpace(line)
		if i := strings.LastIndex(line, "\r"); i >= 0 {
			line = strings.TrimSpace(line[i+1:])
		}
		if line == "" || isProgressLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

var progressPrefixes = []string{
	"Cloning into ",
	"remote: Enumerating objects",
	"remote: Counting objects",
	"remote: Compressing objects",
	"remote: Total ",
	"Receiving objects",
	"Resolving deltas",
	"Updating files",
	"Filtering content",
}

func isProgressLine(line string) bool {
	for _, prefix := range progressPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func (e *Executor) runner() Runner {
	if e.Runner == nil {
		return ExecRunner{}
	}
	return e.Runner
}

// cloneArgs builds `clone [--depth N] URL TARGET`.
func cloneArgs(task CloneTask, cloneURL string) []string {
	args := []string{"clone"}
	if task.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(task.Depth))
	}
	return append(args, cloneURL, task.TargetPath)
}

// isOccupied reports whether path exists as a file or a non-empty directory,
// which git clone would refuse.
func isOccupied(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return true, nil
	}

	dir, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer dir.Close()

	if _, err := dir.Readdirnames(1); err == io.EOF {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}
