package pipeline

import (
	"context"
	stderrors "errors"
	"sync"

	"postharvest/pkg/errors"
	"postharvest/pkg/logger"
	"postharvest/pkg/normalize"
	"postharvest/pkg/store"
)

// Source names the capture path that produced a batch
type Source string

const (
	SourceListener  Source = "listener"
	SourcePaginator Source = "paginator"
)

// ErrClosed is returned by Commit once the writer has stopped
var ErrClosed = stderrors.New("pipeline writer closed")

// Batch is one page of normalized records plus the id of its oldest entry
type Batch struct {
	Source  Source
	Records []normalize.Record
	Cursor  string
}

// Totals is the writer's view of the run after applying a batch
type Totals struct {
	Added    int
	Total    int
	Cursor   string
	Advanced bool
}

// Appender persists records
type Appender interface {
	Append(records []normalize.Record) error
}

// CursorSaver persists the resume cursor
type CursorSaver interface {
	Save(token string) error
}

type request struct {
	batch Batch
	reply chan result
}

type result struct {
	totals Totals
	err    error
}

// Writer is the single owner of the progress file and the cursor. Both
// capture paths hand it batches over one channel, so appends and cursor
// writes never interleave.
type Writer struct {
	progress Appender
	cursor   CursorSaver
	logger   logger.Logger

	// OnBatch is called from the writer goroutine after each applied batch
	OnBatch func(Batch, Totals)

	in   chan request
	quit chan struct{}
	done chan struct{}
	once sync.Once

	mu      sync.RWMutex
	total   int
	current string
	err     error
}

// NewWriter creates a writer resuming from cursor start
func NewWriter(progress Appender, cursor CursorSaver, start string, log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Writer{
		progress: progress,
		cursor:   cursor,
		logger:   log.WithField("component", "pipeline"),
		in:       make(chan request, 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		current:  start,
	}
}

// Start launches the writer goroutine. It exits when ctx is done, Close is
// called, or a store write fails.
func (w *Writer) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case req := <-w.in:
			res := w.apply(req.batch)
			if req.reply != nil {
				req.reply <- res
			}
			if res.err != nil {
				return
			}
		case <-w.quit:
			w.drain()
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain applies batches already queued when Close was called
func (w *Writer) drain() {
	for {
		select {
		case req := <-w.in:
			res := w.apply(req.batch)
			if req.reply != nil {
				req.reply <- res
			}
			if res.err != nil {
				return
			}
		default:
			return
		}
	}
}

func (w *Writer) apply(b Batch) result {
	w.mu.RLock()
	current, total := w.current, w.total
	w.mu.RUnlock()

	if len(b.Records) > 0 {
		if err := w.progress.Append(b.Records); err != nil {
			return result{totals: Totals{Total: total, Cursor: current}, err: w.fail(err, "append failed")}
		}
		total += len(b.Records)
		w.mu.Lock()
		w.total = total
		w.mu.Unlock()
	}

	// a page whose posts all normalize to nothing still moves the cursor
	advanced := false
	if b.Cursor != "" && store.Older(b.Cursor, current) {
		if err := w.cursor.Save(b.Cursor); err != nil {
			return result{totals: Totals{Added: len(b.Records), Total: total, Cursor: current}, err: w.fail(err, "cursor save failed")}
		}
		current = b.Cursor
		advanced = true
		w.mu.Lock()
		w.current = current
		w.mu.Unlock()
	} else if b.Cursor != "" {
		w.logger.WithFields(map[string]interface{}{
			"source":    string(b.Source),
			"candidate": b.Cursor,
			"cursor":    current,
		}).Debug("Batch cursor is not older, keeping current")
	}

	t := Totals{Added: len(b.Records), Total: total, Cursor: current, Advanced: advanced}
	if t.Added == 0 && !advanced {
		return result{totals: t}
	}
	logger.LogBatch(w.logger, string(b.Source), t.Added, t.Total, t.Cursor)
	if w.OnBatch != nil {
		w.OnBatch(b, t)
	}
	return result{totals: t}
}

func (w *Writer) fail(err error, msg string) error {
	if !errors.IsFatal(err) {
		err = errors.Wrap(errors.ErrorTypeIO, err, msg)
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
	w.logger.WithError(err).Error("Store write failed, stopping writer")
	return err
}

// Offer queues a batch without waiting for it to be written. It reports
// false if the writer has stopped.
func (w *Writer) Offer(b Batch) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.in <- request{batch: b}:
		return true
	case <-w.done:
		return false
	}
}

// Commit writes a batch and waits for the result. An empty batch is a
// barrier: it returns once every earlier batch has been applied.
func (w *Writer) Commit(ctx context.Context, b Batch) (Totals, error) {
	reply := make(chan result, 1)
	select {
	case w.in <- request{batch: b, reply: reply}:
	case <-ctx.Done():
		return w.Snapshot(), ctx.Err()
	case <-w.done:
		return w.Snapshot(), w.closedErr()
	}

	select {
	case r := <-reply:
		return r.totals, r.err
	case <-ctx.Done():
		return w.Snapshot(), ctx.Err()
	case <-w.done:
		// the writer may have replied just before exiting
		select {
		case r := <-reply:
			return r.totals, r.err
		default:
			return w.Snapshot(), w.closedErr()
		}
	}
}

// Snapshot returns the current totals
func (w *Writer) Snapshot() Totals {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Totals{Total: w.total, Cursor: w.current}
}

// Cursor returns the oldest id persisted so far
func (w *Writer) Cursor() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Total returns the number of records written this run
func (w *Writer) Total() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.total
}

// Err returns the store failure that stopped the writer, if any
func (w *Writer) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

func (w *Writer) closedErr() error {
	if err := w.Err(); err != nil {
		return err
	}
	return ErrClosed
}

// Close applies queued batches, stops the writer and returns any store failure
func (w *Writer) Close() error {
	w.once.Do(func() { close(w.quit) })
	<-w.done
	return w.Err()
}

// Done is closed when the writer goroutine exits
func (w *Writer) Done() <-chan struct{} {
	return w.done
}
