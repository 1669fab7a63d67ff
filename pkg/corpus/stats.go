package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"postharvest/pkg/errors"
	"postharvest/pkg/normalize"
)

// AuthorStats aggregates the lines of one author
type AuthorStats struct {
	Author     string
	Lines      int
	Characters int
	Shortest   int
	Longest    int
}

// MeanLength is the average text length in characters
func (a AuthorStats) MeanLength() float64 {
	if a.Lines == 0 {
		return 0
	}
	return float64(a.Characters) / float64(a.Lines)
}

// Report summarizes one or more corpus files
type Report struct {
	Files     []string
	Lines     int
	Malformed int
	Authors   map[string]*AuthorStats
}

// Sorted returns per-author stats ordered by line count, largest first
func (r *Report) Sorted() []AuthorStats {
	out := make([]AuthorStats, 0, len(r.Authors))
	for _, a := range r.Authors {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lines != out[j].Lines {
			return out[i].Lines > out[j].Lines
		}
		return out[i].Author < out[j].Author
	})
	return out
}

// Stats reads corpus files and counts lines per author. A line is malformed
// unless it splits into exactly two fields with a non-empty author and text.
func Stats(paths ...string) (*Report, error) {
	r := &Report{Authors: make(map[string]*AuthorStats)}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeIO, err, "failed to open corpus "+path)
		}
		err = r.add(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeIO, err, "failed to read corpus "+path)
		}
		r.Files = append(r.Files, path)
	}
	return r, nil
}

func (r *Report) add(src io.Reader) error {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		r.Lines++

		fields := strings.Split(line, normalize.Delimiter)
		if len(fields) != 2 || fields[0] == "" || strings.TrimSpace(fields[1]) == "" {
			r.Malformed++
			continue
		}

		author, text := fields[0], fields[1]
		a, ok := r.Authors[author]
		if !ok {
			a = &AuthorStats{Author: author, Shortest: -1}
			r.Authors[author] = a
		}
		n := utf8.RuneCountInString(text)
		a.Lines++
		a.Characters += n
		if a.Shortest < 0 || n < a.Shortest {
			a.Shortest = n
		}
		if n > a.Longest {
			a.Longest = n
		}
	}
	return sc.Err()
}

// RenderHTML writes a bar chart page of line counts and mean lengths
func (r *Report) RenderHTML(w io.Writer) error {
	sorted := r.Sorted()
	authors := make([]string, 0, len(sorted))
	counts := make([]opts.BarData, 0, len(sorted))
	means := make([]opts.BarData, 0, len(sorted))
	share := make([]opts.PieData, 0, len(sorted))
	for _, a := range sorted {
		authors = append(authors, a.Author)
		counts = append(counts, opts.BarData{Value: a.Lines})
		means = append(means, opts.BarData{Value: fmt.Sprintf("%.1f", a.MeanLength())})
		share = append(share, opts.PieData{Name: a.Author, Value: a.Lines})
	}

	volume := charts.NewBar()
	volume.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title:    "Corpus volume",
		Subtitle: fmt.Sprintf("%d lines, %d malformed", r.Lines, r.Malformed),
	}))
	volume.SetXAxis(authors).AddSeries("Lines", counts)

	length := charts.NewBar()
	length.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Mean post length"}))
	length.SetXAxis(authors).AddSeries("Characters", means)

	balance := charts.NewPie()
	balance.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Label balance"}))
	balance.AddSeries("Lines", share)

	page := components.NewPage()
	page.PageTitle = "postharvest corpus stats"
	page.AddCharts(volume, length, balance)
	return page.Render(w)
}

// WriteText prints a plain table of the report
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Files:     %s\n", strings.Join(r.Files, ", "))
	fmt.Fprintf(w, "Lines:     %d\n", r.Lines)
	fmt.Fprintf(w, "Malformed: %d\n\n", r.Malformed)
	fmt.Fprintf(w, "%-20s %8s %10s %8s %8s\n", "AUTHOR", "LINES", "MEAN LEN", "MIN", "MAX")
	for _, a := range r.Sorted() {
		fmt.Fprintf(w, "%-20s %8d %10.1f %8d %8d\n", a.Author, a.Lines, a.MeanLength(), a.Shortest, a.Longest)
	}
}
