package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestTitleCodec(t *testing.T) {
	title, err := TitleFromFile("Some Like It Hot 1959.csv")
	require.NoError(t, err)
	assert.Equal(t, reviewgraph.Label("Some Like It Hot (1959)"), title)

	file, err := FileFromTitle(title)
	require.NoError(t, err)
	assert.Equal(t, "Some Like It Hot 1959.csv", file)

	title, err = TitleFromFile("/data/M 1931.CSV")
	require.NoError(t, err)
	assert.Equal(t, reviewgraph.Label("M (1931)"), title)

	for _, bad := range []string{"NoYear.csv", "1959.csv", "Title 59.csv", "Title 19x9.csv"} {
		_, err := TitleFromFile(bad)
		assert.ErrorIs(t, err, ErrInvalidTitle, bad)
	}
	for _, bad := range []reviewgraph.Label{"NoYear", "Title 1959", "Title (19x9)", "(1959)"} {
		_, err := FileFromTitle(bad)
		assert.ErrorIs(t, err, ErrInvalidTitle, string(bad))
	}
}

func TestTitlesMissingDir(t *testing.T) {
	_, err := Titles(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestTitlesSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Vertigo 1958.csv", "user,score\n")
	writeFile(t, dir, "Alien 1979.csv", "user,score\n")
	writeFile(t, dir, "notes.txt", "ignore me")
	writeFile(t, dir, "scratch.csv", "user,score\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Nested 2000.csv"), 0o755))

	titles, err := Titles(dir)
	require.NoError(t, err)
	assert.Equal(t, []reviewgraph.Label{"Alien (1979)", "Vertigo (1958)"}, titles)
}

func TestLoadKeepsOnlyPositiveReviews(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Alien 1979.csv", "username,score\nann,8\nbob,5\ncat,Null\ndan,\neve,abc\nfay,11\ngus,6\n")
	writeFile(t, dir, "Vertigo 1958.csv", "username,score\nann,9\nbob,10\n")
	writeFile(t, dir, "Obscure 2001.csv", "username,score\nbob,2\n")

	l := NewLoader(Options{Dir: dir, Workers: 2}, quiet)
	g, stats, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 10, stats.Rows)
	assert.Equal(t, 4, stats.Positive)
	assert.Equal(t, 6, stats.Skipped)

	assert.Equal(t, []reviewgraph.Label{"Alien (1979)", "Obscure (2001)", "Vertigo (1958)"}, g.Vertices(reviewgraph.KindItem))
	assert.Equal(t, []reviewgraph.Label{"ann", "bob", "gus"}, g.Vertices(reviewgraph.KindReviewer))

	w, ok := g.Weight("ann", "Alien (1979)")
	require.True(t, ok)
	assert.Equal(t, 8, w)
	assert.False(t, g.Adjacent("bob", "Alien (1979)"))
	assert.True(t, g.Adjacent("bob", "Vertigo (1958)"))

	paths, err := g.Paths("Alien (1979)", "Vertigo (1958)")
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestLoadCustomThreshold(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Alien 1979.csv", "username,score\nann,8\nbob,7\n")

	g, _, err := NewLoader(Options{Dir: dir, MinScore: 8}, quiet).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []reviewgraph.Label{"ann"}, g.Vertices(reviewgraph.KindReviewer))
}

func TestLoadSkipsFilesWithoutYear(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Vertigo 1958.csv", "username,score\nann,8\n")
	writeFile(t, dir, "notes.csv", "username,score\nann,8\n")

	titles, err := Titles(dir)
	require.NoError(t, err)

	g, stats, err := NewLoader(Options{Dir: dir}, quiet).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, titles, g.Vertices(reviewgraph.KindItem))
}

func TestLoadReportsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Alien 1979.csv", "username,score\nann,8\n")
	writeFile(t, dir, "Broken 2000.csv", "username,score\na\"nn,8\n")

	_, _, err := NewLoader(Options{Dir: dir}, quiet).Load(context.Background())
	require.ErrorIs(t, err, csv.ErrBareQuote)

	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Len(t, taskErr.Errors, 1)
}

func TestLoadSkipsReviewerNamedLikeFilm(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Alien 1979.csv", "username,score\nVertigo (1958),8\nann,9\n")
	writeFile(t, dir, "Vertigo 1958.csv", "username,score\nann,9\n")

	g, stats, err := NewLoader(Options{Dir: dir}, quiet).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Positive)
	kind, _ := g.Kind("Vertigo (1958)")
	assert.Equal(t, reviewgraph.KindItem, kind)
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Alien 1979.csv", "username,score\nann,8\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewLoader(Options{Dir: dir}, quiet).Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAppendReviewer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Alien 1979.csv", "username,score\nann,8\n")
	writeFile(t, dir, "Vertigo 1958.csv", "username,score\nbob,9")

	l := NewLoader(Options{Dir: dir}, quiet)
	err := l.AppendReviewer("zoe", map[reviewgraph.Label]int{
		"Alien (1979)":   9,
		"Vertigo (1958)": 3,
	})
	require.NoError(t, err)

	alien, err := os.ReadFile(filepath.Join(dir, "Alien 1979.csv"))
	require.NoError(t, err)
	assert.Equal(t, "username,score\nann,8\nzoe,9\n", string(alien))

	vertigo, err := os.ReadFile(filepath.Join(dir, "Vertigo 1958.csv"))
	require.NoError(t, err)
	assert.Equal(t, "username,score\nbob,9\nzoe,3\n", string(vertigo))

	g, _, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, g.Adjacent("zoe", "Alien (1979)"))
	assert.False(t, g.Adjacent("zoe", "Vertigo (1958)"))
}

func TestAppendReviewerUnknownTitleTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Alien 1979.csv", "username,score\nann,8\n")

	l := NewLoader(Options{Dir: dir}, quiet)
	err := l.AppendReviewer("zoe", map[reviewgraph.Label]int{
		"Alien (1979)":   9,
		"Missing (2020)": 7,
	})
	require.ErrorIs(t, err, ErrUnknownTitle)

	alien, err := os.ReadFile(filepath.Join(dir, "Alien 1979.csv"))
	require.NoError(t, err)
	assert.Equal(t, "username,score\nann,8\n", string(alien))
}

func TestRecordsFiltersNegative(t *testing.T) {
	got := Records("zoe", map[reviewgraph.Label]int{"B (2000)": 6, "A (2000)": 10, "C (2000)": 5, "D (2000)": 11}, DefaultMinScore)
	assert.Equal(t, []Record{
		{Reviewer: "zoe", Item: "A (2000)", Score: 10},
		{Reviewer: "zoe", Item: "B (2000)", Score: 6},
	}, got)
}
