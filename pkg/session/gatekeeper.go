package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"postharvest/pkg/browser"
	"postharvest/pkg/config"
	"postharvest/pkg/errors"
	"postharvest/pkg/logger"
	"postharvest/pkg/retry"
)

// Outcome reports how the checkpoint wait ended
type Outcome struct {
	State    State
	TimedOut bool
	Polls    int
	Elapsed  time.Duration
	// Signal names what made the page count as ready
	Signal string
}

// Gatekeeper walks a fresh session through the anti-automation checkpoint.
// It only observes the page; clearing the challenge is left to the operator
// or to cookies restored from a previous run.
type Gatekeeper struct {
	cfg     config.GatekeeperConfig
	tracker *Tracker
	logger  logger.Logger
	sleep   retry.Sleeper
	now     func() time.Time
}

// NewGatekeeper creates a gatekeeper reporting transitions to tracker
func NewGatekeeper(cfg config.GatekeeperConfig, tracker *Tracker, log logger.Logger) *Gatekeeper {
	if log == nil {
		log = logger.GetLogger()
	}
	if tracker == nil {
		tracker = NewTracker(log)
	}
	return &Gatekeeper{
		cfg:     cfg,
		tracker: tracker,
		logger:  log.WithField("component", "gatekeeper"),
		sleep:   retry.Wait,
		now:     time.Now,
	}
}

// WithSleeper replaces the poll sleeper
func (g *Gatekeeper) WithSleeper(s retry.Sleeper) *Gatekeeper {
	g.sleep = s
	return g
}

// WithClock replaces the time source used to bound the wait
func (g *Gatekeeper) WithClock(now func() time.Time) *Gatekeeper {
	g.now = now
	return g
}

// Tracker returns the state tracker
func (g *Gatekeeper) Tracker() *Tracker {
	return g.tracker
}

// Establish navigates to profileURL and polls until the page looks ready or
// MaxWait elapses. A timeout is not an error: the outcome is marked TimedOut
// and the caller proceeds best-effort. Navigation failures and context
// cancellation are returned.
func (g *Gatekeeper) Establish(ctx context.Context, page browser.Page, profileURL string) (Outcome, error) {
	g.tracker.Set(Unauthenticated, "session starting")

	g.logger.WithField("url", profileURL).Info("Navigating to profile")
	if err := page.Navigate(ctx, profileURL); err != nil {
		return Outcome{State: Unauthenticated}, fmt.Errorf("failed to navigate to %s: %w", profileURL, err)
	}
	g.tracker.Set(CheckpointPending, "navigated, waiting for checkpoint clearance")

	start := g.now()
	out := Outcome{State: CheckpointPending}
	for {
		out.Polls++
		signal, err := g.probe(ctx, page)
		if err != nil && ctx.Err() != nil {
			return out, ctx.Err()
		}
		if signal != "" {
			out.State = Ready
			out.Signal = signal
			out.Elapsed = g.now().Sub(start)
			g.tracker.Set(Ready, "ready signal: "+signal)
			return out, nil
		}

		out.Elapsed = g.now().Sub(start)
		if out.Elapsed >= g.cfg.MaxWait {
			out.TimedOut = true
			g.logger.WithError(errors.New(errors.ErrorTypeCheckpoint, 0, "checkpoint not cleared")).
				WithFields(map[string]interface{}{
					"waited": out.Elapsed,
					"polls":  out.Polls,
				}).Warn("Checkpoint wait timed out, proceeding best-effort")
			return out, nil
		}

		if err := g.sleep(ctx, g.cfg.PollInterval); err != nil {
			return out, err
		}
	}
}

// probe inspects the page once. It returns the name of the ready signal, or
// "" while the challenge is showing or nothing has loaded yet.
func (g *Gatekeeper) probe(ctx context.Context, page browser.Page) (string, error) {
	title, err := page.Title(ctx)
	if err != nil {
		g.logger.WithError(err).Debug("Title probe failed")
		return "", err
	}

	for _, marker := range g.cfg.ChallengeMarkers {
		if marker != "" && strings.Contains(title, marker) {
			g.logger.WithField("title", title).Debug("Challenge page still showing")
			return "", nil
		}
	}

	for _, sel := range g.cfg.ReadySelectors {
		has, err := page.Has(ctx, sel)
		if err != nil {
			g.logger.WithError(err).WithField("selector", sel).Debug("Selector probe failed")
			continue
		}
		if has {
			return "selector " + sel, nil
		}
	}

	if g.cfg.IdentityMarker != "" && strings.Contains(title, g.cfg.IdentityMarker) {
		return "title " + g.cfg.IdentityMarker, nil
	}
	return "", nil
}
