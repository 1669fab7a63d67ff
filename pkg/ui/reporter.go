package ui

import (
	"time"

	"postharvest/pkg/pipeline"
)

// Reporter receives progress events from a scrape run
type Reporter interface {
	Batch(b pipeline.Batch, t pipeline.Totals)
	RateLimited(delay time.Duration)
	StateChanged(from, to, reason string)
	Complete(summary Summary)
}

// Summary describes a finished run
type Summary struct {
	Reason   string
	Total    int
	Added    int
	Cursor   string
	Pages    int
	Errors   int
	Degraded int
	Elapsed  time.Duration
}
