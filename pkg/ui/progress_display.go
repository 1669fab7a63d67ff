package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"postharvest/pkg/pipeline"
)

// ProgressDisplay prints a single self-overwriting progress line for a
// scrape run. In debug mode every batch gets its own line instead.
type ProgressDisplay struct {
	mu        sync.Mutex
	author    string
	target    int
	total     int
	added     int
	bySource  map[pipeline.Source]int
	cursor    string
	state     string
	startTime time.Time
	now       func() time.Time
	isDebug   bool
}

// NewProgressDisplay creates a display for a run aiming at target posts
func NewProgressDisplay(author string, target int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		author:    author,
		target:    target,
		bySource:  make(map[pipeline.Source]int),
		startTime: time.Now(),
		now:       time.Now,
		isDebug:   debug,
	}
}

// SetStart seeds the display with the posts already in the progress file
func (p *ProgressDisplay) SetStart(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// Batch records an applied batch
func (p *ProgressDisplay) Batch(b pipeline.Batch, t pipeline.Totals) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = t.Total
	p.added += t.Added
	p.bySource[b.Source] += t.Added
	p.cursor = t.Cursor

	if p.isDebug {
		printf(false, "\n%s %s +%d • %d total • cursor %s\n",
			Green("✓"), b.Source, t.Added, t.Total, Dim(t.Cursor))
		return
	}
	p.printProgress()
}

// RateLimited announces a rate-limit pause
func (p *ProgressDisplay) RateLimited(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	printf(false, "\n%s Rate limit reached. Waiting %s...\n", Yellow("⚠"), FormatDuration(delay))
}

// StateChanged shows session transitions
func (p *ProgressDisplay) StateChanged(from, to, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = to
	printf(false, "\n%s session %s → %s %s\n", Magenta("→"), from, to, Dim(reason))
}

// Line returns the current progress line without printing it
func (p *ProgressDisplay) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line()
}

func (p *ProgressDisplay) line() string {
	elapsed := p.now().Sub(p.startTime)
	rate := Rate(p.added, elapsed)

	line := fmt.Sprintf("%s [%s] %d/%d • %.1f/min • %s",
		Cyan(p.author),
		Bar(p.total, p.target, 20),
		p.total,
		p.target,
		rate,
		ETA(p.total, p.target, rate),
	)

	if n := p.bySource[pipeline.SourceListener]; n > 0 {
		line += fmt.Sprintf(" • %s", Dim(fmt.Sprintf("%d captured", n)))
	}
	if p.state != "" && p.state != "ready" {
		line += fmt.Sprintf(" • %s", Yellow(p.state))
	}
	return line
}

func (p *ProgressDisplay) printProgress() {
	printf(false, "\r%s\r%s", strings.Repeat(" ", 120), p.line())
}

// Complete prints the run summary
func (p *ProgressDisplay) Complete(s Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := Green("✓")
	if s.Reason != "target_reached" && s.Reason != "exhausted" {
		mark = Yellow("⚠")
	}

	printf(false, "\n\n%s %s: %d posts by %s (%d new)\n", mark, s.Reason, s.Total, p.author, s.Added)
	printf(false, "  %s %d pages in %s (%.1f posts/min)\n",
		Dim("•"), s.Pages, FormatDuration(s.Elapsed), Rate(s.Added, s.Elapsed))
	if s.Cursor != "" {
		printf(false, "  %s resume cursor %s\n", Dim("•"), s.Cursor)
	}
	if s.Errors > 0 {
		printf(false, "  %s %d failed fetches, %d degraded cycles\n", Dim("•"), s.Errors, s.Degraded)
	}
}

var _ Reporter = (*ProgressDisplay)(nil)
