// Package logger holds the process-wide logrus logger.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Log is shared by every package. It writes to stderr so it never mixes
// with the progress bar and summary on stdout.
var Log = logrus.New()

// Init configures Log. Debug level is enabled when verbose is set.
func Init(verbose bool, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	Log.SetOutput(out)

	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	Log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: interactive,
		FullTimestamp:    !interactive,
		ForceColors:      interactive,
	})

	if verbose {
		Log.SetLevel(logrus.DebugLevel)
		Log.Debugln("Verbose (debug) logging enabled")
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}
