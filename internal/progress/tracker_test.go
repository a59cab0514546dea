package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTracker_Lifecycle(t *testing.T) {
	tracker := &DefaultTracker{}
	op := tracker.Start("Cloning repositories")

	require.NotNil(t, op)
	assert.Equal(t, "Cloning repositories", op.Name)
	assert.Equal(t, StatusInProgress, op.Status)
	assert.False(t, op.StartTime.IsZero())
	assert.Empty(t, op.RateHistory)

	tracker.Update(5, 10)
	assert.Equal(t, int64(5), op.LastCurrent)
	assert.Equal(t, int64(10), op.LastTotal)

	time.Sleep(20 * time.Millisecond)
	tracker.Update(8, 10)
	assert.Greater(t, op.ProgressRate, 0.0)
	assert.NotEmpty(t, op.RateHistory)
	assert.False(t, op.EstimatedETA.IsZero())

	tracker.Complete()
	assert.Equal(t, StatusCompleted, op.Status)
}

func TestDefaultTracker_Error(t *testing.T) {
	tracker := &DefaultTracker{}
	tracker.Error(errors.New("ignored before start"))
	tracker.Update(1, 2)
	assert.Nil(t, tracker.CurrentOperation)

	tracker.Start("Resolving fork upstreams")
	tracker.Error(errors.New("boom"))
	assert.Equal(t, StatusFailed, tracker.CurrentOperation.Status)
}

func TestOperation_RateHistoryIsBounded(t *testing.T) {
	op := newOperation("bounded")
	now := op.StartTime
	for i := int64(1); i <= rateHistorySize+5; i++ {
		now = now.Add(time.Second)
		op.record(now, i, 100)
	}
	assert.Len(t, op.RateHistory, rateHistorySize)
	assert.InDelta(t, 1.0, op.ProgressRate, 0.001)
	assert.Equal(t, now.Add(85*time.Second), op.EstimatedETA)
}

func TestConsoleTracker_NonInteractive(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewConsoleTracker(&buf)
	assert.False(t, tracker.interactive)

	tracker.Start("Cloning repositories")
	for i := int64(1); i <= 20; i++ {
		tracker.Update(i, 20)
	}
	tracker.Complete()

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Starting: Cloning repositories\n"))
	assert.Contains(t, out, "Cloning repositories: 2/20 (10%)\n")
	assert.Contains(t, out, "Cloning repositories: 20/20 (100%)\n")
	assert.Equal(t, 10, strings.Count(out, "Cloning repositories: "), "one line per decile")
	assert.Contains(t, out, "Completed: Cloning repositories")
	assert.NotContains(t, out, "\r")
}

func TestConsoleTracker_Interactive(t *testing.T) {
	var buf bytes.Buffer
	tracker := &ConsoleTracker{out: &buf, interactive: true, width: 80}

	tracker.Start("Cloning")
	tracker.Update(1, 4)
	tracker.Update(4, 4)
	tracker.Complete()

	out := buf.String()
	assert.Contains(t, out, "\rCloning [")
	assert.Contains(t, out, " 1/4  25%")
	assert.Contains(t, out, " 4/4 100%")
	assert.Contains(t, out, "ETA done")
	assert.Contains(t, out, "\nCompleted: Cloning")
}

func TestConsoleTracker_Error(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewConsoleTracker(&buf)

	tracker.Error(errors.New("not started"))
	assert.Empty(t, buf.String())

	tracker.Start("Listing")
	tracker.Error(errors.New("HTTP 401"))
	assert.Contains(t, buf.String(), "Error: Listing - HTTP 401")

	// Updates after an error are ignored.
	tracker.Update(1, 1)
	assert.NotContains(t, buf.String(), "1/1")
}

func TestConsoleTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := &ConsoleTracker{out: &buf, interactive: true, width: 80}
	tracker.Start("Empty")
	tracker.Update(0, 0)
	tracker.Complete()
	assert.NotContains(t, buf.String(), "[")
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		current, total int64
		width          int
		want           string
	}{
		{0, 10, 10, ".........."},
		{5, 10, 10, "#####....."},
		{10, 10, 10, "##########"},
		{15, 10, 10, "##########"},
		{1, 3, 12, "####........"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, renderBar(tt.current, tt.total, tt.width))
	}
}
