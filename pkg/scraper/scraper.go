package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"postharvest/pkg/auth"
	"postharvest/pkg/capture"
	"postharvest/pkg/config"
	"postharvest/pkg/errors"
	"postharvest/pkg/logger"
	"postharvest/pkg/normalize"
	"postharvest/pkg/paginator"
	"postharvest/pkg/pipeline"
	"postharvest/pkg/retry"
	"postharvest/pkg/session"
	"postharvest/pkg/store"
	"postharvest/pkg/ui"
)

const defaultCookieSet = "default"

// Options tune a single run
type Options struct {
	// ForceRestart discards the saved cursor and starts from the newest post
	ForceRestart bool
}

// Report is everything a run produced
type Report struct {
	Session  session.Outcome
	Capture  capture.Stats
	Paginate paginator.Result
	Summary  ui.Summary
}

// Scraper runs one harvest: it opens the browser, waits out the
// checkpoint, lets passive capture run during the handoff window and then
// pages the timeline until the target is met.
type Scraper struct {
	cfg      *config.Config
	launch   Launcher
	vault    CookieVault
	reporter ui.Reporter
	notifier Notifier
	logger   logger.Logger

	sleep retry.Sleeper
	seed  *int64
	now   func() time.Time
}

// New creates a Scraper
func New(cfg *config.Config, launch Launcher, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if launch == nil {
		launch = RodLauncher
	}
	return &Scraper{
		cfg:    cfg,
		launch: launch,
		logger: log,
		sleep:  retry.Wait,
		now:    time.Now,
	}
}

// WithVault enables cookie injection and refresh
func (s *Scraper) WithVault(v CookieVault) *Scraper {
	s.vault = v
	return s
}

// WithReporter sets the progress sink
func (s *Scraper) WithReporter(r ui.Reporter) *Scraper {
	s.reporter = r
	return s
}

// WithNotifier sets the end-of-run notifier
func (s *Scraper) WithNotifier(n Notifier) *Scraper {
	s.notifier = n
	return s
}

// WithSleeper routes every wait of the run through sl
func (s *Scraper) WithSleeper(sl retry.Sleeper) *Scraper {
	s.sleep = sl
	return s
}

// WithClock replaces the time source for the checkpoint wait and the run summary
func (s *Scraper) WithClock(now func() time.Time) *Scraper {
	s.now = now
	return s
}

// WithSeed makes jitter deterministic
func (s *Scraper) WithSeed(seed int64) *Scraper {
	s.seed = &seed
	return s
}

// Run performs a harvest. A cancelled ctx ends the run gracefully with the
// cursor saved; the returned error is then ctx.Err().
func (s *Scraper) Run(ctx context.Context, opts Options) (Report, error) {
	var report Report
	started := s.now()
	log := s.logger.WithField("component", "scraper")

	progress, err := store.NewProgress(s.cfg.Output.ProgressFile)
	if err != nil {
		return report, errors.Wrap(errors.ErrorTypeIO, err, "open progress file")
	}
	cursor, err := store.NewCursor(s.cfg.Output.CursorFile)
	if err != nil {
		return report, errors.Wrap(errors.ErrorTypeIO, err, "open cursor file")
	}

	if opts.ForceRestart {
		if err := cursor.Clear(); err != nil {
			return report, errors.Wrap(errors.ErrorTypeIO, err, "clear cursor")
		}
		log.Info("Force restart, starting from the newest post")
	}

	start, err := cursor.Load()
	if err != nil {
		return report, errors.Wrap(errors.ErrorTypeIO, err, "load cursor")
	}
	existing, err := progress.Count()
	if err != nil {
		return report, errors.Wrap(errors.ErrorTypeIO, err, "count progress file")
	}

	logger.LogComponentStart(log, "scraper", map[string]interface{}{
		"profile":  s.cfg.Source.ProfileURL(),
		"account":  s.cfg.Source.AccountID,
		"target":   s.cfg.Paginator.Target,
		"cursor":   start,
		"existing": existing,
	})
	if start != "" {
		log.WithField("cursor", start).Info("Resuming from saved cursor")
	}

	b, err := s.launch(s.cfg.Browser, s.logger)
	if err != nil {
		return report, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
		}
	}()

	cookieSet := s.injectCookies(ctx, b, log)

	tracker := session.NewTracker(s.logger)
	degraded := 0
	tracker.OnChange = func(from, to session.State, reason string) {
		if s.reporter != nil {
			s.reporter.StateChanged(from.String(), to.String(), reason)
		}
		if to == session.Degraded {
			degraded++
			if s.notifier != nil {
				s.notifier.Degraded(degraded, reason)
			}
		}
	}

	writer := pipeline.NewWriter(progress, cursor, start, s.logger)
	if s.reporter != nil {
		writer.OnBatch = s.reporter.Batch
	}
	writer.Start(ctx)
	defer writer.Close()

	n := normalize.New(s.cfg.Source.Author)

	// the page requests its own timeline while loading and while the
	// checkpoint is shown, so capture starts before the first navigation
	listener := capture.NewListener(n, writer, s.logger)
	detach := listener.Attach(b)
	stopCapture := func() {
		detach()
		report.Capture = listener.Stats()
	}

	gate := session.NewGatekeeper(s.cfg.Gatekeeper, tracker, s.logger).WithSleeper(s.sleep).WithClock(s.now)
	outcome, err := gate.Establish(ctx, b, s.cfg.Source.ProfileURL())
	report.Session = outcome
	if err != nil {
		stopCapture()
		return s.finish(report, started, err)
	}
	if outcome.State == session.Ready {
		s.saveCookies(ctx, b, cookieSet, log)
	}

	if d := s.cfg.Paginator.HandoffDelay; d > 0 {
		log.WithField("delay", d.String()).Info("Passive capture window open, scroll the timeline to capture posts")
		if err := s.sleep(ctx, d); err != nil {
			stopCapture()
			return s.finish(report, started, err)
		}
	}
	stopCapture()

	// flush captured batches so the paginator starts from their cursor
	if _, err := writer.Commit(ctx, pipeline.Batch{}); err != nil {
		return s.finish(report, started, err)
	}

	p := paginator.New(s.cfg.Source, s.cfg.Paginator, b, writer, n, tracker, s.logger).WithSleeper(s.sleep)
	if s.seed != nil {
		p.WithSeed(*s.seed)
	}
	if s.reporter != nil {
		p.OnRateLimit = s.reporter.RateLimited
	}

	res, runErr := p.Run(ctx, writer.Cursor())
	report.Paginate = res

	if err := writer.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return s.finish(report, started, runErr)
}

// finish fills in the summary and announces the outcome
func (s *Scraper) finish(report Report, started time.Time, err error) (Report, error) {
	res := report.Paginate
	reason := string(res.Reason)
	if reason == "" {
		reason = string(paginator.Failed)
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			reason = string(paginator.Cancelled)
		}
	}

	report.Summary = ui.Summary{
		Reason:   reason,
		Total:    res.Total,
		Added:    res.Total,
		Cursor:   res.Cursor,
		Pages:    res.Pages,
		Errors:   res.Errors,
		Degraded: res.DegradedCycles,
		Elapsed:  s.now().Sub(started),
	}

	if s.reporter != nil {
		s.reporter.Complete(report.Summary)
	}
	if s.notifier != nil {
		if err != nil && reason != string(paginator.Cancelled) {
			s.notifier.Failed(err)
		} else {
			s.notifier.RunComplete(report.Summary)
		}
	}

	fields := map[string]interface{}{
		"total":    report.Summary.Total,
		"pages":    report.Summary.Pages,
		"cursor":   report.Summary.Cursor,
		"captured": report.Capture.Captured,
		"elapsed":  report.Summary.Elapsed.String(),
	}
	log := s.logger.WithField("component", "scraper").WithFields(fields)
	if err != nil && reason != string(paginator.Cancelled) {
		log = log.WithError(err)
	}
	logger.LogComponentStop(log, "scraper", reason)

	return report, err
}

// injectCookies loads the configured cookie set into the browser before the
// first navigation. It returns the set so it can be refreshed later.
func (s *Scraper) injectCookies(ctx context.Context, b Browser, log logger.Logger) *auth.CookieSet {
	if s.vault == nil {
		return nil
	}

	var (
		set *auth.CookieSet
		err error
	)
	if name := s.cfg.Browser.CookieAccount; name != "" {
		set, err = s.vault.Retrieve(name)
	} else {
		set, err = s.vault.RetrieveDefault()
	}
	if err != nil {
		log.WithError(err).Debug("No stored cookies, relying on the browser profile")
		return nil
	}

	if err := b.SetCookies(ctx, set.Cookies); err != nil {
		log.WithError(err).Warn("Failed to inject stored cookies")
		return set
	}
	if set.UserAgent != "" {
		if err := b.SetUserAgent(set.UserAgent); err != nil {
			log.WithError(err).Warn("Failed to apply stored user agent")
		}
	}

	log.WithFields(map[string]interface{}{
		"set":     set.Name,
		"cookies": len(set.Cookies),
	}).Info("Injected stored session cookies")
	return set
}

// saveCookies writes the browser's current cookies back to the vault so a
// solved checkpoint survives the next launch
func (s *Scraper) saveCookies(ctx context.Context, b Browser, previous *auth.CookieSet, log logger.Logger) {
	if s.vault == nil {
		return
	}

	cookies, err := b.Cookies(ctx, s.cfg.Source.BaseURL)
	if err != nil {
		log.WithError(err).Warn("Failed to read browser cookies")
		return
	}
	if len(cookies) == 0 {
		return
	}

	set := &auth.CookieSet{Name: s.cfg.Browser.CookieAccount, Cookies: cookies}
	if previous != nil {
		set.UserAgent = previous.UserAgent
		if set.Name == "" {
			set.Name = previous.Name
		}
	}
	if set.Name == "" || set.Name == "env" {
		set.Name = defaultCookieSet
	}

	if err := s.vault.Store(set); err != nil {
		log.WithError(err).Warn("Failed to save session cookies")
		return
	}
	log.WithFields(map[string]interface{}{
		"set":     set.Name,
		"cookies": len(cookies),
	}).Debug("Saved session cookies")
}
