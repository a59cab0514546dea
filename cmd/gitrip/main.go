// Package main provides gitrip, a CLI that clones every repository a GitHub
// user owns or has starred
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/NicabarNimble/go-gitrip/internal/analytics"
	"github.com/NicabarNimble/go-gitrip/internal/config"
	apperrors "github.com/NicabarNimble/go-gitrip/internal/errors"
	"github.com/NicabarNimble/go-gitrip/internal/git"
	"github.com/NicabarNimble/go-gitrip/internal/github"
	"github.com/NicabarNimble/go-gitrip/internal/logger"
	"github.com/NicabarNimble/go-gitrip/internal/progress"
	"github.com/NicabarNimble/go-gitrip/internal/report"
	"github.com/NicabarNimble/go-gitrip/internal/scheduler"
	"github.com/NicabarNimble/go-gitrip/internal/token"
)

var (
	// apiOptions and newCloner allow for mocking in tests
	apiOptions []github.Option
	newCloner  = func(tok string) git.Cloner { return git.NewExecutor(tok) }

	osExit = os.Exit
)

// flags holds the raw command-line values. They only override the config
// when explicitly set.
type flags struct {
	configFile  string
	dir         string
	depth       int
	sync        bool
	token       string
	lfs         bool
	workers     int
	analytics   string
	noAnalytics bool
	verbose     bool
}

func main() {
	osExit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	exitCode := 0
	rootCmd := newRootCmd(stdout, stderr, &exitCode)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return apperrors.ExitCode(err)
	}
	return exitCode
}

func newRootCmd(stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "gitrip <username> <all|starred>",
		Short: "Clone every repository of a GitHub user",
		Long: `Clone all repositories a GitHub user owns, or all repositories they have
starred, into a local directory using a pool of concurrent git processes.

Example usage:
  gitrip octocat all
  gitrip octocat starred -d ./mirror --depth 1
  gitrip octocat all --sync --lfs -w 8`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), f, args)
			if err != nil {
				return err
			}
			logger.Init(cfg.Verbose, stderr)

			tok, err := resolveToken(f.token)
			if err != nil {
				return err
			}
			cfg.Token = tok

			code, err := rip(cmd.Context(), cfg, stdout)
			if err != nil {
				return err
			}
			*exitCode = code
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	f.register(rootCmd.Flags())

	return rootCmd
}

// register binds f to fs.
func (f *flags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.dir, "dir", "d", ".", "Directory to clone into")
	fs.IntVar(&f.depth, "depth", 0, "Create shallow clones with this many commits (0 for full history)")
	fs.BoolVar(&f.sync, "sync", false, "Clone the upstream of forks instead of the fork itself")
	fs.StringVar(&f.token, "token", "", "GitHub token (default: GITHUB_TOKEN, GH_TOKEN or GIT_TOKEN_GITHUB)")
	fs.BoolVar(&f.lfs, "lfs", false, "Fetch Git LFS objects after cloning")
	fs.IntVarP(&f.workers, "workers", "w", scheduler.DefaultWorkers, "Number of concurrent clones")
	fs.StringVar(&f.configFile, "config", config.DefaultConfigFile, "YAML configuration file")
	fs.StringVar(&f.analytics, "analytics", "", "Analytics file (default: <username>_repo_analytics.json)")
	fs.BoolVar(&f.noAnalytics, "no-analytics", false, "Do not record analytics")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig layers defaults, the config file, the environment and finally
// the flags that were explicitly set.
func loadConfig(fs *pflag.FlagSet, f *flags, args []string) (*config.Config, error) {
	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if fs.Changed("config") {
		if _, err := os.Stat(f.configFile); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	cfg, err := config.LoadConfig(f.configFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if fs.Changed("dir") {
		cfg.Directory = f.dir
	}
	if fs.Changed("depth") {
		cfg.Depth = f.depth
	}
	if fs.Changed("sync") {
		cfg.Sync = f.sync
	}
	if fs.Changed("lfs") {
		cfg.LFS = f.lfs
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("analytics") {
		cfg.AnalyticsFile = f.analytics
	}
	if fs.Changed("no-analytics") {
		cfg.DisableAnalytics = f.noAnalytics
	}
	if fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	cfg.Username = args[0]
	mode, err := github.ParseMode(args[1])
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Mode = mode

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveToken returns "" when no token is configured; that is allowed.
func resolveToken(flagValue string) (string, error) {
	tok, err := token.Resolve(flagValue)
	if errors.Is(err, token.ErrTokenNotFound) {
		logger.Log.Warn("No GitHub token found. Private repositories will be skipped and API rate limits are low.")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if token.LooksForeign(tok.Value) {
		logger.Log.Warnf("Token from %s looks like a %s token, GitHub will probably reject it", tok.Source, token.DetectProvider(tok.Value))
	}
	logger.Log.Debugf("Using token from %s", tok.Source)
	return tok.Value, nil
}

// rip lists, clones and reports. The returned code reflects clone failures;
// a non-nil error means the run stopped before cloning.
func rip(ctx context.Context, cfg *config.Config, stdout io.Writer) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	client, err := github.NewClient(ctx, cfg.Token, apiOptions...)
	if err != nil {
		return 1, err
	}

	if cfg.Token != "" {
		id, err := client.VerifyToken(ctx)
		switch {
		case apperrors.IsAuth(err):
			return 1, err
		case err != nil:
			logger.Log.Warnf("Could not verify token: %v", err)
		default:
			logger.Log.Infof("Authenticated as %s", id.Login)
			if len(id.Scopes) > 0 && !id.HasScope("repo") {
				logger.Log.Debugf("Token scopes %v do not include repo; private repositories may be missing", id.Scopes)
			}
		}
	}

	descs, err := client.ListRepositories(ctx, cfg.Username, cfg.Mode)
	if err != nil {
		return 1, err
	}
	logger.Log.Infof("Found %d %s repositories for %s", len(descs), cfg.Mode, cfg.Username)

	tracker := progress.NewConsoleTracker(stdout)
	if cfg.Sync {
		descs = client.ResolveUpstreams(ctx, descs, tracker)
	}

	tasks := scheduler.BuildTasks(descs, scheduler.Options{
		Directory: cfg.Directory,
		Depth:     cfg.Depth,
		LFS:       cfg.LFS,
		Sync:      cfg.Sync,
	})

	var results []git.CloneResult
	if len(tasks) > 0 {
		pool := &scheduler.Pool{Workers: cfg.Workers}
		tracker.Start(fmt.Sprintf("Cloning %d repositories", len(tasks)))
		results = pool.Run(ctx, tasks, newCloner(cfg.Token), func(done, total int, result git.CloneResult) {
			tracker.Update(int64(done), int64(total))
			if !result.Succeeded {
				logger.Log.Debugf("%s failed at %s step: %s", result.Task.Descriptor.FullName, result.Step, result.ErrorMessage)
			}
		})
	}

	summary := report.Summarize(results, time.Since(start))
	if len(tasks) > 0 {
		if summary.Failed > 0 {
			tracker.Error(fmt.Errorf("%d of %d clones failed", summary.Failed, summary.Total))
		} else {
			tracker.Complete()
		}
	}
	report.Render(stdout, summary)

	if path := cfg.AnalyticsPath(); path != "" {
		if err := recordAnalytics(path, results); err != nil {
			logger.Log.Warnf("Analytics not saved: %v", err)
		}
	}

	return summary.ExitCode(), nil
}

func recordAnalytics(path string, results []git.CloneResult) error {
	store, err := analytics.Load(path)
	if err != nil {
		return err
	}
	store.Add(analytics.NewRunID(), results, time.Now())
	if err := store.Save(); err != nil {
		return err
	}

	succeeded, upstreams := store.Totals()
	logger.Log.Debugf("Analytics saved to %s (%d repositories ripped, %d from upstream)", store.Path(), succeeded, upstreams)
	return nil
}
