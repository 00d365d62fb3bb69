// Package dataset reads the per-film review files that seed the review graph
// and appends new reviewer observations to them.
//
// The dataset is a directory with one CSV file per film, named
// "<Title> <Year>.csv". Each file starts with a header row followed by
// (reviewer, score) rows. Scores are integers out of ten; "Null" marks a
// missing score.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

const (
	// DefaultMinScore is the lowest score that counts as a positive review.
	DefaultMinScore = 6
	// MaxScore is the top of the rating scale.
	MaxScore = 10

	nullScore = "Null"
)

// Record is one positive review.
type Record struct {
	Reviewer reviewgraph.Label
	Item     reviewgraph.Label
	Score    int
}

// Stats summarises one load.
type Stats struct {
	Files    int
	Rows     int
	Positive int
	Skipped  int
	Duration time.Duration
}

// Options configures a Loader.
type Options struct {
	Dir      string
	MinScore int
	Workers  int
}

// Loader builds review graphs from a dataset directory.
type Loader struct {
	dir      string
	minScore int
	workers  int
	logger   *slog.Logger
}

// NewLoader constructs a Loader. A zero MinScore means DefaultMinScore.
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if opts.MinScore <= 0 {
		opts.MinScore = DefaultMinScore
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		dir:      opts.Dir,
		minScore: opts.MinScore,
		workers:  opts.Workers,
		logger:   logger.With("component", "dataset"),
	}
}

// Dir returns the dataset directory.
func (l *Loader) Dir() string {
	return l.dir
}

// MinScore returns the positive review threshold.
func (l *Loader) MinScore() int {
	return l.minScore
}

// Positive reports whether score is kept as an edge.
func (l *Loader) Positive(score int) bool {
	return Positive(score, l.minScore)
}

// Positive reports whether score lies between minScore and MaxScore.
func Positive(score, minScore int) bool {
	return score >= minScore && score <= MaxScore
}

type fileResult struct {
	title   reviewgraph.Label
	records []Record
	rows    int
}

// Load reads every review file concurrently and returns the populated graph.
// Every film becomes an item vertex, even when none of its reviews are
// positive. CSV files whose names carry no year are skipped, as in Titles.
func (l *Loader) Load(ctx context.Context) (*reviewgraph.Graph, Stats, error) {
	start := time.Now()

	listed, err := Files(l.dir)
	if err != nil {
		return nil, Stats{}, err
	}
	files := listed[:0]
	for _, name := range listed {
		if _, err := TitleFromFile(name); err != nil {
			l.logger.Warn("skipping review file without a year", "file", name)
			continue
		}
		files = append(files, name)
	}

	results := make([]fileResult, len(files))
	err = runPool(ctx, l.workers, len(files), func(idx int) error {
		res, err := l.readFile(files[idx])
		if err != nil {
			return err
		}
		results[idx] = res
		return nil
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("load dataset %s: %w", l.dir, err)
	}

	stats := Stats{Files: len(files)}
	g := reviewgraph.New()
	err = g.Update(func(m *reviewgraph.Mutator) error {
		for _, res := range results {
			if err := m.AddVertex(res.title, reviewgraph.KindItem); err != nil {
				return err
			}
		}
		for _, res := range results {
			stats.Rows += res.rows
			applied, err := ApplyRecords(m, res.records)
			if err != nil {
				return err
			}
			stats.Positive += applied
		}
		return nil
	})
	if err != nil {
		return nil, Stats{}, err
	}
	stats.Skipped = stats.Rows - stats.Positive
	stats.Duration = time.Since(start)

	gs := g.Stats()
	l.logger.Info("dataset loaded",
		"dir", l.dir,
		"files", stats.Files,
		"rows", stats.Rows,
		"skipped", stats.Skipped,
		"reviewers", gs.Reviewers,
		"items", gs.Items,
		"edges", gs.Edges,
		"duration", stats.Duration,
	)
	return g, stats, nil
}

// readFile parses one review file and keeps its positive reviews. Rows with
// a missing, non-numeric or out of range score are skipped.
func (l *Loader) readFile(name string) (fileResult, error) {
	title, err := TitleFromFile(name)
	if err != nil {
		return fileResult{}, err
	}

	f, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		return fileResult{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	res := fileResult{title: title}
	header := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fileResult{}, fmt.Errorf("read %s: %w", name, err)
		}
		if header {
			header = false
			continue
		}
		res.rows++

		rec, ok := l.parseRow(title, row)
		if !ok {
			continue
		}
		res.records = append(res.records, rec)
	}
	return res, nil
}

func (l *Loader) parseRow(title reviewgraph.Label, row []string) (Record, bool) {
	if len(row) < 2 {
		return Record{}, false
	}
	reviewer := strings.TrimSpace(row[0])
	raw := strings.TrimSpace(row[1])
	if reviewer == "" || raw == "" || raw == nullScore {
		return Record{}, false
	}
	score, err := strconv.Atoi(raw)
	if err != nil || !l.Positive(score) {
		return Record{}, false
	}
	return Record{Reviewer: reviewgraph.Label(reviewer), Item: title, Score: score}, true
}

// ApplyRecords inserts the reviewer and item vertices and the edge for every
// record, returning how many edges were applied. A record whose reviewer or
// item label already belongs to a vertex of the other kind is skipped. The
// caller holds the graph's write lock through m.
func ApplyRecords(m *reviewgraph.Mutator, records []Record) (int, error) {
	applied := 0
	for _, rec := range records {
		if !kindFits(m, rec.Reviewer, reviewgraph.KindReviewer) || !kindFits(m, rec.Item, reviewgraph.KindItem) {
			continue
		}
		if err := m.AddVertex(rec.Reviewer, reviewgraph.KindReviewer); err != nil {
			return applied, err
		}
		if err := m.AddVertex(rec.Item, reviewgraph.KindItem); err != nil {
			return applied, err
		}
		if err := m.AddEdge(rec.Reviewer, rec.Item, rec.Score); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func kindFits(m *reviewgraph.Mutator, label reviewgraph.Label, want reviewgraph.Kind) bool {
	kind, ok := m.Kind(label)
	return !ok || kind == want
}
