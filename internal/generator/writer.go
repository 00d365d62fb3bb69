package generator

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vanshika/filmgraph/internal/dataset"
)

const nullScore = "Null"

// WriteDataset writes one review file per film under dir, named the way the
// dataset loader expects. Existing files for the same titles are replaced.
func WriteDataset(ds Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, film := range ds.Films {
		name, err := dataset.FileFromTitle(film.Title)
		if err != nil {
			return err
		}
		if err := writeCSV(filepath.Join(dir, name), film.Ratings); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, ratings []Rating) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"user", "score"}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, r := range ratings {
		score := nullScore
		if r.Score != nil {
			score = strconv.Itoa(*r.Score)
		}
		if err := w.Write([]string{r.Reviewer, score}); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
