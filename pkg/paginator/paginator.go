package paginator

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"postharvest/pkg/browser"
	"postharvest/pkg/config"
	"postharvest/pkg/errors"
	"postharvest/pkg/logger"
	"postharvest/pkg/normalize"
	"postharvest/pkg/pipeline"
	"postharvest/pkg/ratelimit"
	"postharvest/pkg/retry"
	"postharvest/pkg/session"
	"postharvest/pkg/truthsocial"
)

// Reason says why a run stopped
type Reason string

const (
	TargetReached Reason = "target_reached"
	Exhausted     Reason = "exhausted"
	DegradedLimit Reason = "degraded_limit"
	Cancelled     Reason = "cancelled"
	Failed        Reason = "failed"
)

// Committer is the writer side the paginator needs
type Committer interface {
	Commit(ctx context.Context, b pipeline.Batch) (pipeline.Totals, error)
	Total() int
}

// Result summarizes a finished run
type Result struct {
	Reason         Reason
	Total          int
	Cursor         string
	Pages          int
	RateLimited    int
	Errors         int
	DegradedCycles int
}

// Paginator walks the account timeline from inside the authenticated page,
// oldest-ward from a cursor, until the target is met or the source runs dry.
type Paginator struct {
	// OnRateLimit, if set, is called before each rate-limit sleep
	OnRateLimit func(delay time.Duration)

	source config.SourceConfig
	cfg    config.PaginatorConfig

	page       browser.Page
	writer     Committer
	normalizer *normalize.Normalizer
	tracker    *session.Tracker
	pacer      *ratelimit.Pacer
	backoff    *retry.Escalating
	logger     logger.Logger

	sleep retry.Sleeper
	rnd   *rand.Rand

	consecutiveErrors int
	failures          int
}

// New creates a paginator. tracker may be nil.
func New(source config.SourceConfig, cfg config.PaginatorConfig, page browser.Page, writer Committer,
	n *normalize.Normalizer, tracker *session.Tracker, log logger.Logger) *Paginator {
	if log == nil {
		log = logger.GetLogger()
	}
	if tracker == nil {
		tracker = session.NewTracker(log)
	}
	return &Paginator{
		source:     source,
		cfg:        cfg,
		page:       page,
		writer:     writer,
		normalizer: n,
		tracker:    tracker,
		pacer:      ratelimit.NewPacer(cfg.MinInterval, cfg.JitterMin, cfg.JitterMax),
		backoff:    retry.NewEscalating(cfg.InitialBackoff, cfg.BackoffFloor, cfg.BackoffCeiling),
		logger:     log.WithField("component", "paginator"),
		sleep:      retry.Wait,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSleeper routes every wait through s
func (p *Paginator) WithSleeper(s retry.Sleeper) *Paginator {
	p.sleep = s
	p.pacer.WithSleeper(s)
	return p
}

// WithSeed makes jitter and pointer movement deterministic
func (p *Paginator) WithSeed(seed int64) *Paginator {
	p.rnd = rand.New(rand.NewSource(seed))
	p.pacer.WithSeed(seed)
	return p
}

// ConsecutiveErrors returns the current error streak
func (p *Paginator) ConsecutiveErrors() int {
	return p.consecutiveErrors
}

// Backoff returns the delay the next rate limit will sleep
func (p *Paginator) Backoff() time.Duration {
	return p.backoff.Current()
}

// Run fetches pages starting at cursor start ("" for the newest page). There
// is no iteration cap: transient failures are retried until the target is
// reached, the source is exhausted, ctx ends or, when MaxDegradedCycles is
// set, recovery has been attempted that many times. Store failures end the
// run with an error.
func (p *Paginator) Run(ctx context.Context, start string) (Result, error) {
	logger.LogComponentStart(p.logger, "paginator", map[string]interface{}{
		"cursor": start,
		"target": p.cfg.Target,
	})
	p.tracker.Set(session.Ready, "paginator took over")

	res := Result{Cursor: start}
	cursor := start
	finish := func(reason Reason, err error) (Result, error) {
		res.Reason = reason
		res.Total = p.writer.Total()
		res.Cursor = cursor
		res.Errors = p.failures
		logger.LogComponentStop(p.logger.WithFields(map[string]interface{}{
			"total":  res.Total,
			"pages":  res.Pages,
			"cursor": cursor,
		}), "paginator", string(reason))
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(Cancelled, err)
		}
		if total := p.writer.Total(); total >= p.cfg.Target {
			p.logger.WithField("total", total).Info("Target reached")
			return finish(TargetReached, nil)
		}

		if err := p.pacer.Wait(ctx); err != nil {
			return finish(Cancelled, err)
		}

		url := truthsocial.TimelineURL(p.source.BaseURL, p.source.AccountID, cursor, p.source.PageLimit)
		fetched, err := p.page.Fetch(ctx, url)
		if err != nil && ctx.Err() != nil {
			return finish(Cancelled, ctx.Err())
		}

		var wait error
		switch {
		case err != nil:
			wait = p.fail(ctx, errors.Wrap(errors.ErrorTypeNetwork, err, "in-page fetch failed"), cursor)

		case fetched.Status == http.StatusOK && truthsocial.EmptyPage(fetched.Body):
			p.logger.WithField("cursor", cursor).Info("Empty response, source exhausted")
			return finish(Exhausted, nil)

		case fetched.Status == http.StatusOK:
			statuses, perr := truthsocial.ParseStatuses(fetched.Body)
			if perr != nil {
				wait = p.fail(ctx, perr, cursor)
				break
			}
			if len(statuses) == 0 {
				p.logger.WithField("cursor", cursor).Info("No more posts, source exhausted")
				return finish(Exhausted, nil)
			}

			totals, cerr := p.writer.Commit(ctx, pipeline.Batch{
				Source:  pipeline.SourcePaginator,
				Records: p.normalizer.NormalizeAll(truthsocial.Contents(statuses)),
				Cursor:  truthsocial.Oldest(statuses),
			})
			if cerr != nil {
				if ctx.Err() != nil {
					return finish(Cancelled, ctx.Err())
				}
				return finish(Failed, cerr)
			}
			res.Pages++
			if !totals.Advanced {
				p.logger.WithFields(map[string]interface{}{
					"cursor": cursor,
					"oldest": truthsocial.Oldest(statuses),
				}).Error("Page did not move the cursor, treating source as exhausted")
				return finish(Exhausted, nil)
			}
			cursor = totals.Cursor

			p.consecutiveErrors = 0
			p.backoff.Reset()
			logger.LogProgress(p.logger, totals.Total, p.cfg.Target)
			_, wait = p.pacer.Pause(ctx)

		case fetched.Status == http.StatusTooManyRequests:
			res.RateLimited++
			delay := p.backoff.Escalate()
			logger.LogRateLimit(p.logger, delay, cursor)
			if p.OnRateLimit != nil {
				p.OnRateLimit(delay)
			}
			wait = p.sleep(ctx, delay)

		case fetched.Status == http.StatusForbidden:
			to := browser.Point{X: float64(100 + p.rnd.Intn(401)), Y: float64(100 + p.rnd.Intn(401))}
			if err := p.page.MoveMouse(ctx, to); err != nil {
				p.logger.WithError(err).Debug("Pointer move failed")
			}
			wait = p.fail(ctx, errors.New(errors.ErrorTypeForbidden, fetched.Status, "forbidden"), cursor)

		default:
			msg := fmt.Sprintf("unexpected status %d", fetched.Status)
			if fetched.Error != "" {
				msg = fetched.Error
			}
			wait = p.fail(ctx, errors.New(errors.FromStatus(fetched.Status), fetched.Status, msg), cursor)
		}
		if wait != nil {
			return finish(Cancelled, wait)
		}

		if p.consecutiveErrors > p.cfg.ErrorThreshold {
			res.DegradedCycles++
			if p.cfg.MaxDegradedCycles > 0 && res.DegradedCycles > p.cfg.MaxDegradedCycles {
				p.tracker.Set(session.Degraded, "recovery limit reached")
				p.logger.WithField("cycles", res.DegradedCycles-1).Error("Too many degraded cycles, stopping")
				return finish(DegradedLimit, nil)
			}
			if err := p.recoverSession(ctx); err != nil {
				return finish(Cancelled, err)
			}
		}
	}
}

// fail records a transient failure and sleeps the fixed error delay
func (p *Paginator) fail(ctx context.Context, err error, cursor string) error {
	p.consecutiveErrors++
	p.failures++
	p.logger.WithError(err).WithFields(map[string]interface{}{
		"cursor":             cursor,
		"consecutive_errors": p.consecutiveErrors,
		"type":               string(errors.TypeOf(err)),
	}).Warn("Fetch failed, retrying")
	return p.sleep(ctx, p.cfg.ErrorSleep)
}

// recoverSession cools down, reloads the page and starts a fresh error streak
func (p *Paginator) recoverSession(ctx context.Context) error {
	p.tracker.Set(session.Degraded, fmt.Sprintf("%d consecutive errors", p.consecutiveErrors))
	if err := p.sleep(ctx, p.cfg.Cooldown); err != nil {
		return err
	}
	if err := p.page.Reload(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.WithError(err).Warn("Reload failed")
	}
	if err := p.sleep(ctx, p.cfg.SettleDelay); err != nil {
		return err
	}
	p.consecutiveErrors = 0
	p.tracker.Set(session.Ready, "page reloaded")
	return nil
}
