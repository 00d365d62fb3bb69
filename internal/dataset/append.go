package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

// ErrUnknownTitle indicates a rating for a film with no review file.
var ErrUnknownTitle = errors.New("unknown title")

// AppendReviewer adds one (reviewer, score) row to the review file of every
// rated film. Every title is checked before any file is touched, so an
// unknown title leaves the dataset unchanged.
func (l *Loader) AppendReviewer(reviewer string, ratings map[reviewgraph.Label]int) error {
	titles := make([]reviewgraph.Label, 0, len(ratings))
	for title := range ratings {
		titles = append(titles, title)
	}
	sort.Slice(titles, func(i, j int) bool { return titles[i] < titles[j] })

	paths := make([]string, len(titles))
	for i, title := range titles {
		name, err := FileFromTitle(title)
		if err != nil {
			return err
		}
		path := filepath.Join(l.dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %q", ErrUnknownTitle, title)
			}
			return fmt.Errorf("stat %s: %w", name, err)
		}
		paths[i] = path
	}

	for i, title := range titles {
		if err := appendRow(paths[i], []string{reviewer, strconv.Itoa(ratings[title])}); err != nil {
			return err
		}
	}
	l.logger.Info("reviewer appended", "reviewer", reviewer, "ratings", len(titles))
	return nil
}

// Records converts ratings into the positive reviews a loader with the
// given threshold would keep, ordered by item.
func Records(reviewer string, ratings map[reviewgraph.Label]int, minScore int) []Record {
	out := make([]Record, 0, len(ratings))
	for title, score := range ratings {
		if !Positive(score, minScore) {
			continue
		}
		out = append(out, Record{Reviewer: reviewgraph.Label(reviewer), Item: title, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

func appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	// Files edited by hand often lack a trailing newline.
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			if _, err := f.Write([]byte{'\n'}); err != nil {
				f.Close()
				return fmt.Errorf("append %s: %w", path, err)
			}
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}
