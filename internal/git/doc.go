// Package git runs the external git binary to materialise repositories on
// disk.
//
// Key Components:
//
// CloneTask: one repository to clone. Carries the effective clone URL (the
// upstream's URL when a fork is being synced), the destination path, an
// optional shallow depth and whether Git LFS objects should be pulled.
//
// Executor: runs the clone for a task and always returns exactly one
// CloneResult. The clone step is `git clone [--depth N] URL TARGET`; when
// LFS is enabled a second step, `git lfs pull`, runs inside TARGET. Both
// steps must exit 0 for the result to be successful.
//
// When a token is set it is embedded only in GitHub https URLs, and origin
// is reset to the plain URL afterwards so the token never stays in
// .git/config.
//
// Runner: the seam between the Executor and os/exec. ExecRunner is the
// production implementation; tests substitute fakes.
//
// Example Usage:
//
//	exec := git.NewExecutor(token)
//	result := exec.Clone(ctx, git.CloneTask{
//	    Descriptor: desc,
//	    URL:        desc.CloneURL,
//	    TargetPath: filepath.Join(dir, desc.Name),
//	    Depth:      1,
//	    LFS:        true,
//	})
//	if !result.Succeeded {
//	    log.Printf("%s: %s", desc.FullName, result.ErrorMessage)
//	}
//
// Error Handling:
//
// Failures are reported in CloneResult rather than returned. Err holds a
// *errors.CloneError whose Kind tells the clone step (CloneFailure) apart
// from the LFS step (LfsFailure). ErrorMessage is git's captured stderr
// with any access token scrubbed. Nothing is retried, and a partially
// cloned directory is left in place.
//
// Thread Safety:
//
// An Executor holds no mutable state and may be shared by many workers.
// Tasks must target distinct directories.
package git
