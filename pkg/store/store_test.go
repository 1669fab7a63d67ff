package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "postharvest/pkg/errors"
	"postharvest/pkg/normalize"
)

func TestProgressAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus", "progress.csv")
	p, err := NewProgress(path)
	require.NoError(t, err)

	n := normalize.New("Trump")
	rec, ok := n.Normalize("Hello,\nworld")
	require.True(t, ok)

	require.NoError(t, p.Append([]normalize.Record{rec}))
	require.NoError(t, p.Append(n.NormalizeAll([]string{"<p>second</p>", "third"})))
	require.NoError(t, p.Append(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Trump,Hello; world\nTrump,second\nTrump,third\n", string(data))

	count, err := p.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestProgressCountMissingFile(t *testing.T) {
	p, err := NewProgress(filepath.Join(t.TempDir(), "none.csv"))
	require.NoError(t, err)

	count, err := p.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProgressCountLongLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.csv")
	line := "Musk," + strings.Repeat("x", 10000) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(line+line), 0644))

	p, err := NewProgress(path)
	require.NoError(t, err)
	count, err := p.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProgressAppendFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	p, err := NewProgress(dir) // a directory cannot be opened for append
	require.NoError(t, err)

	err = p.Append([]normalize.Record{{Author: "Trump", Text: "x"}})
	require.Error(t, err)
	assert.True(t, errs.IsFatal(err))
}

func TestCursorLoadSave(t *testing.T) {
	c, err := NewCursor(filepath.Join(t.TempDir(), "state", "last_id.txt"))
	require.NoError(t, err)

	token, err := c.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, c.Save("112233"))
	require.NoError(t, c.Save("112200"))

	token, err = c.Load()
	require.NoError(t, err)
	assert.Equal(t, "112200", token)

	_, err = os.Stat(c.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must not be left behind")

	require.NoError(t, c.Clear())
	token, err = c.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
	require.NoError(t, c.Clear())
}

func TestCursorLoadTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_id.txt")
	require.NoError(t, os.WriteFile(path, []byte("1099\n"), 0644))

	c, err := NewCursor(path)
	require.NoError(t, err)
	token, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, "1099", token)
}

func TestOlder(t *testing.T) {
	tests := []struct {
		candidate, current string
		want               bool
	}{
		{"100", "", true},
		{"", "100", false},
		{"99", "100", true},
		{"100", "99", false},
		{"114000000000000001", "114000000000000002", true},
		{"114000000000000002", "114000000000000002", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Older(tt.candidate, tt.current), "Older(%q, %q)", tt.candidate, tt.current)
	}
}

// A crash after Append but before Cursor.Save replays the batch on resume.
// The duplicate rows are expected and left in place.
func TestAtLeastOnceReplayDuplicatesBatch(t *testing.T) {
	dir := t.TempDir()
	p, err := NewProgress(filepath.Join(dir, "progress.csv"))
	require.NoError(t, err)
	c, err := NewCursor(filepath.Join(dir, "last_id.txt"))
	require.NoError(t, err)

	batch := []normalize.Record{{Author: "Trump", Text: "one"}, {Author: "Trump", Text: "two"}}

	// first run: cursor saved for the first page, second page appended then crash
	require.NoError(t, p.Append(batch[:1]))
	require.NoError(t, c.Save("200"))
	require.NoError(t, p.Append(batch[1:]))

	// resumed run starts from "200" and fetches the same second page again
	resume, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, "200", resume)
	require.NoError(t, p.Append(batch[1:]))
	require.NoError(t, c.Save("100"))

	data, err := os.ReadFile(p.Path())
	require.NoError(t, err)
	assert.Equal(t, "Trump,one\nTrump,two\nTrump,two\n", string(data))
}
