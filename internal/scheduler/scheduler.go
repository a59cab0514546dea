// Package scheduler turns repository descriptors into clone tasks and runs
// them on a fixed-size worker pool.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	apperrors "github.com/NicabarNimble/go-gitrip/internal/errors"
	"github.com/NicabarNimble/go-gitrip/internal/git"
	"github.com/NicabarNimble/go-gitrip/internal/github"
	"github.com/NicabarNimble/go-gitrip/internal/logger"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 32

// Options controls how tasks are derived from descriptors.
type Options struct {
	Directory string
	Depth     int
	LFS       bool
	Sync      bool // clone a fork's upstream instead of the fork when it is known
}

// BuildTasks derives exactly one task per descriptor. The target directory
// is Directory/<name>; in sync mode a fork with a resolved upstream is cloned
// from the upstream URL into the same place.
func BuildTasks(descs []github.RepositoryDescriptor, opts Options) []git.CloneTask {
	tasks := make([]git.CloneTask, 0, len(descs))
	claimed := make(map[string]string, len(descs))

	for _, d := range descs {
		task := git.CloneTask{
			Descriptor: d,
			URL:        d.CloneURL,
			TargetPath: filepath.Join(opts.Directory, d.Name),
			Depth:      opts.Depth,
			LFS:        opts.LFS,
		}
		if opts.Sync && d.IsFork && d.ParentCloneURL != "" {
			task.URL = d.ParentCloneURL
			task.Upstream = true
		}

		if prev, ok := claimed[task.TargetPath]; ok {
			logger.Log.Warnf("%s and %s both clone into %s; the second will fail", prev, d.FullName, task.TargetPath)
		}
		claimed[task.TargetPath] = d.FullName
		tasks = append(tasks, task)
	}
	return tasks
}

// ResultFunc observes each result as it arrives. done counts results so far.
type ResultFunc func(done, total int, result git.CloneResult)

// Pool runs clone tasks on a fixed number of workers
type Pool struct {
	Workers int
}

// Run clones every task and returns one result per task, in completion
// order. Workers only produce results; the calling goroutine is the single
// consumer, so onResult needs no locking. Run does not return until every
// task has finished.
func (p *Pool) Run(ctx context.Context, tasks []git.CloneTask, cloner git.Cloner, onResult ResultFunc) []git.CloneResult {
	if len(tasks) == 0 {
		return nil
	}

	workers := p.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	logger.Log.Debugf("Cloning %d repositories with %d workers", len(tasks), workers)

	jobs := make(chan git.CloneTask, len(tasks))
	for _, task := range tasks {
		jobs <- task
	}
	close(jobs)

	results := make(chan git.CloneResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				results <- cloneSafely(ctx, cloner, task)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]git.CloneResult, 0, len(tasks))
	for result := range results {
		collected = append(collected, result)
		if onResult != nil {
			onResult(len(collected), len(tasks), result)
		}
	}
	return collected
}

// cloneSafely turns a panicking Cloner into a failed result so that no task
// goes unreported.
func cloneSafely(ctx context.Context, cloner git.Cloner, task git.CloneTask) (result git.CloneResult) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.NewCloneFailure(task.Descriptor.FullName, 0, "", fmt.Errorf("panic: %v", r))
			result = git.CloneResult{
				Task:         task,
				Step:         git.StepClone,
				Err:          err,
				ErrorMessage: err.Error(),
			}
		}
	}()
	return cloner.Clone(ctx, task)
}
