package ui

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"postharvest/pkg/config"
	"postharvest/pkg/pipeline"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetQuiet(false)
	})
	return &buf
}

type recordingSender struct {
	titles []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return nil
}

func TestBar(t *testing.T) {
	assert.Equal(t, "━━━━━─────", Bar(50, 100, 10))
	assert.Equal(t, "━━━━━━━━━━", Bar(150, 100, 10))
	assert.Equal(t, "──────────", Bar(5, 0, 10))
	assert.Equal(t, "", Bar(5, 10, 0))
}

func TestRateAndETA(t *testing.T) {
	assert.Equal(t, 0.0, Rate(10, 0))
	assert.InDelta(t, 20.0, Rate(40, 2*time.Minute), 0.001)

	assert.Equal(t, "calculating...", ETA(0, 100, 0))
	assert.Equal(t, "calculating...", ETA(100, 100, 5))
	assert.Equal(t, "5m0s", ETA(50, 100, 10))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestProgressDisplayLine(t *testing.T) {
	buf := captureOutput(t)

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgressDisplay("Trump", 100, false)
	p.startTime = start
	p.now = func() time.Time { return start.Add(2 * time.Minute) }
	p.SetStart(10)

	p.Batch(pipeline.Batch{Source: pipeline.SourceListener}, pipeline.Totals{Added: 20, Total: 30, Cursor: "500"})
	p.Batch(pipeline.Batch{Source: pipeline.SourcePaginator}, pipeline.Totals{Added: 20, Total: 50, Cursor: "400"})

	line := p.Line()
	assert.Contains(t, line, "50/100")
	assert.Contains(t, line, "20.0/min")
	assert.Contains(t, line, "20 captured")
	assert.Contains(t, line, "2m30s")
	assert.Contains(t, buf.String(), "50/100")
}

func TestProgressDisplayStateAndComplete(t *testing.T) {
	buf := captureOutput(t)

	p := NewProgressDisplay("Trump", 100, true)
	p.StateChanged("ready", "degraded", "consecutive errors")
	assert.Contains(t, p.Line(), "degraded")

	p.RateLimited(20 * time.Second)
	p.Complete(Summary{Reason: "exhausted", Total: 80, Added: 30, Cursor: "77", Pages: 3, Errors: 2, Degraded: 1, Elapsed: time.Minute})

	out := buf.String()
	assert.Contains(t, out, "Waiting 20s")
	assert.Contains(t, out, "exhausted: 80 posts by Trump (30 new)")
	assert.Contains(t, out, "resume cursor 77")
	assert.Contains(t, out, "2 failed fetches, 1 degraded cycles")
}

func TestNotifierRespectsSettings(t *testing.T) {
	captureOutput(t)

	sender := &recordingSender{}
	n := NewNotifierWithSender(config.NotificationConfig{Enabled: true, OnComplete: true, OnDegraded: false}, sender)

	n.RunComplete(Summary{Reason: "target_reached", Total: 10})
	n.Degraded(1, "errors")
	n.Failed(errors.New("disk full"))

	assert.Equal(t, []string{"Scrape finished", "Scrape failed"}, sender.titles)

	disabled := &recordingSender{}
	NewNotifierWithSender(config.NotificationConfig{Enabled: false, OnComplete: true, OnDegraded: true}, disabled).RunComplete(Summary{})
	assert.Empty(t, disabled.titles)
}

func TestQuietModeKeepsErrors(t *testing.T) {
	buf := captureOutput(t)
	SetQuiet(true)

	PrintInfo("Target", "100")
	PrintSuccess("done")
	PrintError("Failed", "boom")

	assert.NotContains(t, buf.String(), "Target")
	assert.NotContains(t, buf.String(), "done")
	assert.Contains(t, buf.String(), "Failed: boom")
}
