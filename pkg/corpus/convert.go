package corpus

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"postharvest/pkg/errors"
	"postharvest/pkg/logger"
	"postharvest/pkg/normalize"
	"postharvest/pkg/store"
)

// DefaultTextColumn is the column holding the post body in archive exports
const DefaultTextColumn = "fullText"

// batchSize is how many records are buffered before each append
const batchSize = 500

// ConvertOptions controls an archive conversion
type ConvertOptions struct {
	Author     string
	TextColumn string
}

// Appender receives converted records
type Appender interface {
	Append(records []normalize.Record) error
}

// ConvertStats reports what a conversion did
type ConvertStats struct {
	Rows    int
	Written int
	Empty   int
	Skipped int
}

// Convert reads a CSV export with a header row and appends one corpus line
// per non-empty text cell to dst. Rows the CSV reader cannot parse are
// skipped and counted.
func Convert(src io.Reader, dst Appender, opts ConvertOptions, log logger.Logger) (ConvertStats, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	column := opts.TextColumn
	if column == "" {
		column = DefaultTextColumn
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return ConvertStats{}, errors.Wrap(errors.ErrorTypeParsing, err, "failed to read header")
	}
	idx := -1
	for i, name := range header {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ConvertStats{}, errors.New(errors.ErrorTypeParsing, 0, fmt.Sprintf("column %q not found", column))
	}

	n := normalize.New(opts.Author)
	var stats ConvertStats
	batch := make([]normalize.Record, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := dst.Append(batch); err != nil {
			return err
		}
		stats.Written += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if stderrors.As(err, &perr) {
				stats.Skipped++
				log.WithError(err).Debug("Skipping malformed row")
				continue
			}
			return stats, errors.Wrap(errors.ErrorTypeIO, err, "failed to read export")
		}
		stats.Rows++

		if idx >= len(row) {
			stats.Skipped++
			continue
		}
		rec, ok := n.Normalize(row[idx])
		if !ok {
			stats.Empty++
			continue
		}
		batch = append(batch, rec)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	log.WithFields(map[string]interface{}{
		"rows":    stats.Rows,
		"written": stats.Written,
		"empty":   stats.Empty,
		"skipped": stats.Skipped,
		"author":  opts.Author,
	}).Info("Conversion complete")
	return stats, nil
}

// ConvertFile converts the export at inPath into the corpus file at outPath.
// outPath is truncated first unless appendMode is set.
func ConvertFile(inPath, outPath string, opts ConvertOptions, appendMode bool, log logger.Logger) (ConvertStats, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return ConvertStats{}, errors.Wrap(errors.ErrorTypeIO, err, "failed to open export")
	}
	defer in.Close()

	dst, err := store.NewProgress(outPath)
	if err != nil {
		return ConvertStats{}, err
	}
	if !appendMode {
		if err := os.WriteFile(outPath, nil, 0644); err != nil {
			return ConvertStats{}, errors.Wrap(errors.ErrorTypeIO, err, "failed to truncate output")
		}
	}
	return Convert(in, dst, opts, log)
}
