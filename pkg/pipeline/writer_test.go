package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postharvest/pkg/errors"
	"postharvest/pkg/logger"
	"postharvest/pkg/normalize"
	"postharvest/pkg/store"
)

func newStores(t *testing.T) (*store.Progress, *store.Cursor) {
	t.Helper()
	dir := t.TempDir()
	p, err := store.NewProgress(filepath.Join(dir, "progress.csv"))
	require.NoError(t, err)
	c, err := store.NewCursor(filepath.Join(dir, "last_id.txt"))
	require.NoError(t, err)
	return p, c
}

func records(texts ...string) []normalize.Record {
	return normalize.New("Trump").NormalizeAll(texts)
}

func TestCommitAdvancesCursorMonotonically(t *testing.T) {
	p, c := newStores(t)
	w := NewWriter(p, c, "", logger.NewTestLogger())
	w.Start(context.Background())
	defer w.Close()

	ctx := context.Background()
	cursors := []string{"300", "200", "100"}
	for i, id := range cursors {
		totals, err := w.Commit(ctx, Batch{Source: SourcePaginator, Records: records("post"), Cursor: id})
		require.NoError(t, err)
		assert.True(t, totals.Advanced)
		assert.Equal(t, i+1, totals.Total)

		saved, err := c.Load()
		require.NoError(t, err)
		assert.Equal(t, id, saved)
	}

	// a newer id never moves the cursor back
	totals, err := w.Commit(ctx, Batch{Source: SourceListener, Records: records("late"), Cursor: "250"})
	require.NoError(t, err)
	assert.False(t, totals.Advanced)
	assert.Equal(t, "100", totals.Cursor)
	assert.Equal(t, 4, w.Total())
	assert.Equal(t, "100", w.Cursor())
}

func TestCommitEmptyBatchIsBarrier(t *testing.T) {
	p, c := newStores(t)
	w := NewWriter(p, c, "500", logger.NewTestLogger())
	w.Start(context.Background())
	defer w.Close()

	for i := 0; i < 10; i++ {
		require.True(t, w.Offer(Batch{Source: SourceListener, Records: records("a", "b"), Cursor: "4" + string(rune('9'-i))}))
	}

	totals, err := w.Commit(context.Background(), Batch{})
	require.NoError(t, err)
	assert.Equal(t, 20, totals.Total)
	assert.Equal(t, "40", totals.Cursor)
	assert.Zero(t, totals.Added)

	count, err := p.Count()
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestConcurrentOffersProduceWholeLines(t *testing.T) {
	p, c := newStores(t)
	w := NewWriter(p, c, "", logger.NewNopLogger())
	w.Start(context.Background())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				w.Offer(Batch{Source: SourceListener, Records: records("one,\ntwo", "three")})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(p.Path())
	require.NoError(t, err)
	lines := 0
	for _, line := range splitLines(string(data)) {
		lines++
		assert.Contains(t, []string{"Trump,one; two", "Trump,three"}, line)
	}
	assert.Equal(t, 400, lines)
	assert.Equal(t, 400, w.Total())
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

type failingAppender struct{}

func (failingAppender) Append([]normalize.Record) error {
	return stderrors.New("no space left on device")
}

func TestAppendFailureStopsWriter(t *testing.T) {
	_, c := newStores(t)
	log := logger.NewTestLogger()
	w := NewWriter(failingAppender{}, c, "", log)
	w.Start(context.Background())

	_, err := w.Commit(context.Background(), Batch{Source: SourcePaginator, Records: records("x"), Cursor: "1"})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	<-w.Done()
	assert.False(t, w.Offer(Batch{Records: records("y")}))

	_, err = w.Commit(context.Background(), Batch{Records: records("z")})
	assert.True(t, errors.IsFatal(err))
	assert.True(t, errors.IsFatal(w.Close()))
	assert.True(t, log.HasError())

	token, err := c.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "cursor must not move when the append failed")
}

func TestOnBatchHook(t *testing.T) {
	p, c := newStores(t)
	w := NewWriter(p, c, "", logger.NewNopLogger())

	var got []Totals
	w.OnBatch = func(b Batch, totals Totals) { got = append(got, totals) }
	w.Start(context.Background())

	_, err := w.Commit(context.Background(), Batch{Source: SourcePaginator, Records: records("a", "", "b"), Cursor: "9"})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Added)
}

func TestCommitAfterClose(t *testing.T) {
	p, c := newStores(t)
	w := NewWriter(p, c, "", logger.NewNopLogger())
	w.Start(context.Background())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err := w.Commit(context.Background(), Batch{Records: records("late")})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCursorOnlyBatchAdvances(t *testing.T) {
	p, c := newStores(t)
	w := NewWriter(p, c, "90", logger.NewNopLogger())
	w.Start(context.Background())
	defer w.Close()

	totals, err := w.Commit(context.Background(), Batch{Source: SourcePaginator, Cursor: "80"})
	require.NoError(t, err)
	assert.True(t, totals.Advanced)
	assert.Zero(t, totals.Total)
	assert.Equal(t, "80", w.Cursor())
}
