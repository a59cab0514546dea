// Package report aggregates clone results into the end-of-run summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/NicabarNimble/go-gitrip/internal/git"
)

// Failure is one repository that did not clone.
type Failure struct {
	Name   string
	Step   git.Step
	Reason string
}

// Summary is the aggregate outcome of a run.
type Summary struct {
	Total          int
	Succeeded      int
	Failed         int
	Upstreams      int // successful clones taken from a fork's upstream
	Failures       []Failure
	TotalBytes     int64
	SizeKnown      bool
	CloneTime      time.Duration // sum over tasks
	WallClock      time.Duration
	ReposPerMinute float64
}

// Summarize aggregates results irrespective of completion order.
func Summarize(results []git.CloneResult, wallClock time.Duration) Summary {
	s := Summary{
		Total:     len(results),
		WallClock: wallClock,
	}

	for _, r := range results {
		s.CloneTime += r.Duration
		if size, ok := r.Task.Descriptor.SizeBytes(); ok {
			s.TotalBytes += size
			s.SizeKnown = true
		}
		if !r.Succeeded {
			s.Failures = append(s.Failures, Failure{
				Name:   displayName(r.Task),
				Step:   r.Step,
				Reason: r.ErrorMessage,
			})
			continue
		}
		if r.Task.Upstream {
			s.Upstreams++
		}
	}

	s.Failed = len(s.Failures)
	s.Succeeded = s.Total - s.Failed
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Name < s.Failures[j].Name })

	if minutes := wallClock.Minutes(); minutes > 0 {
		s.ReposPerMinute = float64(s.Succeeded) / minutes
	}
	return s
}

// ExitCode is 0 when every repository cloned and 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// AverageCloneTime is the mean per-task clone duration.
func (s Summary) AverageCloneTime() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.CloneTime / time.Duration(s.Total)
}

// Render prints the summary table, followed by a failure table when needed.
func Render(w io.Writer, s Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rip summary")

	size := "n/a"
	if s.SizeKnown {
		size = humanize.Bytes(uint64(s.TotalBytes))
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk([][]string{
		{"Repositories", fmt.Sprintf("%d", s.Total)},
		{"Succeeded", color.GreenString("%d", s.Succeeded)},
		{"Failed", failedCell(s.Failed)},
		{"Upstreams cloned", fmt.Sprintf("%d", s.Upstreams)},
		{"Total size", size},
		{"Wall clock", s.WallClock.Round(time.Millisecond).String()},
		{"Average clone time", s.AverageCloneTime().Round(time.Millisecond).String()},
		{"Rate", fmt.Sprintf("%.1f repos/min", s.ReposPerMinute)},
	})
	table.Render()

	if len(s.Failures) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, color.RedString("Failed repositories"))
	failures := tablewriter.NewWriter(w)
	failures.SetHeader([]string{"Repository", "Step", "Reason"})
	failures.SetAutoWrapText(false)
	failures.SetAlignment(tablewriter.ALIGN_LEFT)
	failures.AppendBulk(lo.Map(s.Failures, func(f Failure, _ int) []string {
		return []string{f.Name, string(f.Step), reasonLine(f.Reason)}
	}))
	failures.Render()
}

func failedCell(n int) string {
	if n == 0 {
		return "0"
	}
	return color.RedString("%d", n)
}

func displayName(task git.CloneTask) string {
	if task.Descriptor.FullName != "" {
		return task.Descriptor.FullName
	}
	return task.Descriptor.Name
}

// reasonLine keeps table rows to one line, preferring the line that
// carries git's fatal or error message.
func reasonLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for _, line := range lines {
		if strings.Contains(line, "fatal:") || strings.Contains(line, "error:") {
			return strings.TrimSpace(line)
		}
	}
	return strings.TrimSpace(lines[0])
}
