package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	errs "postharvest/pkg/errors"
	"postharvest/pkg/normalize"
)

// Progress is the append-only corpus file. Each record becomes one
// "author,text" line; there is no header and no quoting.
type Progress struct {
	path string
	mu   sync.Mutex
}

// NewProgress prepares the corpus file at path, creating its directory
func NewProgress(path string) (*Progress, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create progress directory: %w", err)
		}
	}
	return &Progress{path: path}, nil
}

// Path returns the corpus file location
func (p *Progress) Path() string {
	return p.path
}

// Append writes records as one batch and syncs it to disk. A failure is a
// local fatal error: the caller must stop rather than drop the batch.
func (p *Progress) Append(records []normalize.Record) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, rec := range records {
		buf.WriteString(rec.Line())
		buf.WriteByte('\n')
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeIO, err, "open progress file")
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return errs.Wrap(errs.ErrorTypeIO, err, "append batch")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errs.Wrap(errs.ErrorTypeIO, err, "sync progress file")
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.ErrorTypeIO, err, "close progress file")
	}

	return nil
}

// Count returns the number of lines in the corpus, i.e. the historical volume
// across every run. A missing file counts as zero.
func (p *Progress) Count() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open progress file: %w", err)
	}
	defer f.Close()

	return countLines(f)
}

func countLines(r io.Reader) (int, error) {
	reader := bufio.NewReader(r)
	count := 0
	for {
		_, err := reader.ReadSlice('\n')
		switch err {
		case nil:
			count++
		case bufio.ErrBufferFull:
			// long line, keep reading until its newline
		case io.EOF:
			return count, nil
		default:
			return count, fmt.Errorf("failed to read progress file: %w", err)
		}
	}
}
