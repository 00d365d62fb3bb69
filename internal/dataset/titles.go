package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

const fileExt = ".csv"

var (
	// ErrDatasetNotFound indicates the dataset directory does not exist.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrInvalidTitle indicates a file name or label without a trailing year.
	ErrInvalidTitle = errors.New("invalid title")
)

// TitleFromFile converts "Some Like It Hot 1959.csv" to "Some Like It Hot (1959)".
func TitleFromFile(name string) (reviewgraph.Label, error) {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); strings.EqualFold(ext, fileExt) {
		base = base[:len(base)-len(ext)]
	}
	if len(base) < 6 || base[len(base)-5] != ' ' || !isYear(base[len(base)-4:]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTitle, name)
	}
	return reviewgraph.Label(base[:len(base)-4] + "(" + base[len(base)-4:] + ")"), nil
}

// FileFromTitle is the inverse of TitleFromFile.
func FileFromTitle(title reviewgraph.Label) (string, error) {
	s := string(title)
	if len(s) < 8 || !strings.HasSuffix(s, ")") || s[len(s)-7:len(s)-5] != " (" || !isYear(s[len(s)-5:len(s)-1]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTitle, title)
	}
	return s[:len(s)-6] + s[len(s)-5:len(s)-1] + fileExt, nil
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Files lists the review files in dir, sorted by name.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, dir)
		}
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), fileExt) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Titles lists the item labels of every review file in dir. Files whose
// names do not carry a year are skipped.
func Titles(dir string) ([]reviewgraph.Label, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	titles := make([]reviewgraph.Label, 0, len(files))
	for _, f := range files {
		title, err := TitleFromFile(f)
		if err != nil {
			continue
		}
		titles = append(titles, title)
	}
	sort.Slice(titles, func(i, j int) bool { return titles[i] < titles[j] })
	return titles, nil
}
