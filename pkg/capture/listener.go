package capture

import (
	"net/http"
	"sync"

	"postharvest/pkg/browser"
	"postharvest/pkg/logger"
	"postharvest/pkg/normalize"
	"postharvest/pkg/pipeline"
	"postharvest/pkg/truthsocial"
)

// Sink accepts batches without blocking the caller on the write
type Sink interface {
	Offer(b pipeline.Batch) bool
}

// Stats counts what the listener has seen
type Stats struct {
	Matched  int
	Ignored  int
	Batches  int
	Captured int
}

// Listener harvests timeline pages the site loads on its own while the
// operator scrolls. It never issues requests.
type Listener struct {
	normalizer *normalize.Normalizer
	sink       Sink
	logger     logger.Logger

	mu    sync.Mutex
	stats Stats
}

// NewListener creates a listener that normalizes under n and hands batches to sink
func NewListener(n *normalize.Normalizer, sink Sink, log logger.Logger) *Listener {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Listener{
		normalizer: n,
		sink:       sink,
		logger:     log.WithField("component", "listener"),
	}
}

// Matches reports whether url is an account timeline page
func (l *Listener) Matches(url string) bool {
	return truthsocial.IsTimelineURL(url)
}

// Attach registers the listener on page and returns the detach function
func (l *Listener) Attach(page browser.Page) func() {
	logger.LogComponentStart(l.logger, "listener", nil)
	detach := page.OnResponse(l.Matches, func(resp browser.Response) { l.Handle(resp) })
	return func() {
		detach()
		s := l.Stats()
		logger.LogComponentStop(l.logger.WithFields(map[string]interface{}{
			"matched":  s.Matched,
			"ignored":  s.Ignored,
			"captured": s.Captured,
		}), "listener", "handoff")
	}
}

// Handle processes one network response. Unrecognized bodies are dropped
// without error. It returns the number of records forwarded.
func (l *Listener) Handle(resp browser.Response) int {
	if !l.Matches(resp.URL) || resp.Status != http.StatusOK {
		return 0
	}
	l.count(func(s *Stats) { s.Matched++ })

	statuses, err := truthsocial.ParseStatuses(resp.Body)
	if err != nil {
		l.count(func(s *Stats) { s.Ignored++ })
		l.logger.WithError(err).WithField("url", resp.URL).Debug("Ignoring unrecognized timeline response")
		return 0
	}

	records := l.normalizer.NormalizeAll(truthsocial.Contents(statuses))
	if len(records) == 0 {
		return 0
	}

	batch := pipeline.Batch{
		Source:  pipeline.SourceListener,
		Records: records,
		Cursor:  truthsocial.Oldest(statuses),
	}
	if !l.sink.Offer(batch) {
		l.logger.WithField("batch", len(records)).Warn("Writer stopped, dropping captured batch")
		return 0
	}

	l.count(func(s *Stats) {
		s.Batches++
		s.Captured += len(records)
	})
	return len(records)
}

// Stats returns a snapshot of the counters
func (l *Listener) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Listener) count(f func(*Stats)) {
	l.mu.Lock()
	f(&l.stats)
	l.mu.Unlock()
}
