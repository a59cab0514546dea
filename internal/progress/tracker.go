// Package progress renders live progress for long-running batch operations.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Tracker interface defines methods for tracking operation progress
type Tracker interface {
	Start(operation string) *Operation
	Update(current, total int64)
	Complete()
	Error(err error)
}

// Operation represents a tracked operation
type Operation struct {
	Name         string
	StartTime    time.Time
	Status       string
	LastUpdate   time.Time
	LastCurrent  int64
	LastTotal    int64
	ProgressRate float64 // items per second
	RateHistory  []float64
	EstimatedETA time.Time
}

const (
	rateHistorySize = 10 // Keep last 10 rate measurements for averaging

	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

func newOperation(name string) *Operation {
	now := time.Now()
	return &Operation{
		Name:        name,
		StartTime:   now,
		LastUpdate:  now,
		Status:      StatusInProgress,
		RateHistory: make([]float64, 0, rateHistorySize),
	}
}

// record folds a new (current, total) sample into the moving rate average
// and the ETA.
func (op *Operation) record(now time.Time, current, total int64) {
	if op.LastCurrent > 0 || current > 0 {
		elapsed := now.Sub(op.LastUpdate).Seconds()
		if elapsed > 0 && current > op.LastCurrent {
			rate := float64(current-op.LastCurrent) / elapsed
			if len(op.RateHistory) >= rateHistorySize {
				op.RateHistory = op.RateHistory[1:]
			}
			op.RateHistory = append(op.RateHistory, rate)

			var sum float64
			for _, r := range op.RateHistory {
				sum += r
			}
			op.ProgressRate = sum / float64(len(op.RateHistory))

			if op.ProgressRate > 0 {
				remaining := float64(total-current) / op.ProgressRate
				op.EstimatedETA = now.Add(time.Duration(remaining * float64(time.Second)))
			}
		}
	}

	op.LastUpdate = now
	op.LastCurrent = current
	op.LastTotal = total
}

// DefaultTracker records progress without printing anything
type DefaultTracker struct {
	CurrentOperation *Operation
}

// Start begins tracking a new operation
func (t *DefaultTracker) Start(operation string) *Operation {
	t.CurrentOperation = newOperation(operation)
	return t.CurrentOperation
}

// Update updates the progress of the current operation
func (t *DefaultTracker) Update(current, total int64) {
	if t.CurrentOperation == nil {
		return
	}
	t.CurrentOperation.record(time.Now(), current, total)
}

// Complete marks the operation as completed
func (t *DefaultTracker) Complete() {
	if t.CurrentOperation != nil {
		t.CurrentOperation.Status = StatusCompleted
	}
}

// Error marks the operation as failed with an error
func (t *DefaultTracker) Error(err error) {
	if t.CurrentOperation != nil {
		t.CurrentOperation.Status = StatusFailed
	}
}

// ConsoleTracker draws a single-line progress bar on a terminal. On other
// writers (pipes, CI logs) it prints a line per 10% instead.
//
// A ConsoleTracker is not safe for concurrent use; callers feed it from a
// single goroutine.
type ConsoleTracker struct {
	out              io.Writer
	interactive      bool
	width            int
	currentOperation *Operation
	lastDecile       int64
	drawn            bool
}

const (
	defaultWidth = 80
	minBarWidth  = 10
	maxBarWidth  = 40
)

// NewConsoleTracker creates a tracker writing to out (stdout when nil).
func NewConsoleTracker(out io.Writer) *ConsoleTracker {
	if out == nil {
		out = os.Stdout
	}
	t := &ConsoleTracker{out: out, width: defaultWidth}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.interactive = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			t.width = w
		}
	}
	return t
}

// Start begins tracking a new operation
func (t *ConsoleTracker) Start(operation string) *Operation {
	t.currentOperation = newOperation(operation)
	t.lastDecile = 0
	t.drawn = false
	fmt.Fprintf(t.out, "Starting: %s\n", operation)
	return t.currentOperation
}

// Update updates the progress of the current operation
func (t *ConsoleTracker) Update(current, total int64) {
	op := t.currentOperation
	if op == nil || total <= 0 {
		return
	}
	op.record(time.Now(), current, total)

	if !t.interactive {
		decile := current * 10 / total
		if decile > t.lastDecile {
			t.lastDecile = decile
			fmt.Fprintf(t.out, "%s: %d/%d (%d%%)\n", op.Name, current, total, current*100/total)
		}
		return
	}

	stats := fmt.Sprintf(" %d/%d %3.0f%% (%.1f/s, ETA %s)",
		current, total, float64(current)*100/float64(total), op.ProgressRate, t.eta())
	barWidth := t.width - len(op.Name) - len(stats) - 4
	if barWidth > maxBarWidth {
		barWidth = maxBarWidth
	}
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}

	fmt.Fprintf(t.out, "\r%s [%s]%s", op.Name, renderBar(current, total, barWidth), stats)
	t.drawn = true
}

func (t *ConsoleTracker) eta() string {
	op := t.currentOperation
	if op.LastCurrent >= op.LastTotal {
		return "done"
	}
	if op.EstimatedETA.IsZero() {
		return "calculating..."
	}
	remaining := time.Until(op.EstimatedETA).Round(time.Second)
	if remaining <= 0 {
		return "almost done"
	}
	return remaining.String()
}

// renderBar returns a width-character bar filled in proportion to current/total.
func renderBar(current, total int64, width int) string {
	if current > total {
		current = total
	}
	filled := 0
	if total > 0 {
		filled = int(current * int64(width) / total)
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}

// Complete marks the current operation as completed
func (t *ConsoleTracker) Complete() {
	if t.currentOperation == nil {
		return
	}
	if t.drawn {
		fmt.Fprintln(t.out)
	}
	duration := time.Since(t.currentOperation.StartTime).Round(time.Millisecond)
	fmt.Fprintf(t.out, "Completed: %s (took %v)\n", t.currentOperation.Name, duration)
	t.currentOperation = nil
}

// Error marks the current operation as failed
func (t *ConsoleTracker) Error(err error) {
	if t.currentOperation == nil {
		return
	}
	if t.drawn {
		fmt.Fprintln(t.out)
	}
	fmt.Fprintf(t.out, "Error: %s - %v\n", t.currentOperation.Name, err)
	t.currentOperation = nil
}
