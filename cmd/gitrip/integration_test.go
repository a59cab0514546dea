package main

import (
	"bytes"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicabarNimble/go-gitrip/internal/git"
)

// runCommand executes a command in the specified directory
func runCommand(dir string, command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@example.com",
		"GIT_CONFIG_GLOBAL=/dev/null", // Ignore global config
		"GIT_CONFIG_SYSTEM=/dev/null", // Ignore system config
	)
	return cmd.Run()
}

// setupBareRepo creates a bare repository with a single commit and returns
// its path, which git accepts as a clone URL.
func setupBareRepo(t *testing.T, root, name string) string {
	t.Helper()

	work := filepath.Join(root, "work", name)
	bare := filepath.Join(root, "remote", name+".git")
	require.NoError(t, os.MkdirAll(work, 0755))

	steps := []struct {
		dir  string
		args []string
	}{
		{work, []string{"init"}},
		{work, []string{"add", "README.md"}},
		{work, []string{"commit", "-m", "Initial commit"}},
		{work, []string{"checkout", "-B", "main"}},
		{root, []string{"clone", "--bare", work, bare}},
	}

	require.NoError(t, os.WriteFile(filepath.Join(work, "README.md"), []byte("# "+name+"\n"), 0644))
	for _, step := range steps {
		require.NoError(t, runCommand(step.dir, "git", step.args...), "git %v", step.args)
	}
	return bare
}

func TestIntegration_RipLocalRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	root := t.TempDir()
	names := []string{"alpha", "beta", "gamma"}
	listing := make([]interface{}, 0, len(names))
	for _, name := range names {
		r := repo("alice", name, false)
		r["clone_url"] = setupBareRepo(t, root, name)
		listing = append(listing, r)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listing)
	})
	setup(t, mux, nil)
	newCloner = func(tok string) git.Cloner { return git.NewExecutor(tok) }

	dest := filepath.Join(root, "mirror")
	args := []string{"alice", "all", "-d", dest, "-w", "2", "--depth", "1", "--no-analytics"}

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, execute(args, &stdout, &stderr), stderr.String())
	for _, name := range names {
		assert.FileExists(t, filepath.Join(dest, name, "README.md"))
	}

	// A second run finds every destination occupied.
	stdout.Reset()
	stderr.Reset()
	assert.Equal(t, 1, execute(args, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "already exists")
	for _, name := range names {
		assert.FileExists(t, filepath.Join(dest, name, "README.md"), "existing clones are left alone")
	}
}
