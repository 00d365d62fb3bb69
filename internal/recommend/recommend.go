// Package recommend turns bounded bridging paths between items into
// recommendation values and ranked candidate lists.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

// PathSource is the read side of the review graph consumed by the scorer.
// *reviewgraph.Graph satisfies it.
type PathSource interface {
	Paths(start, target reviewgraph.Label, opts ...reviewgraph.PathOption) ([]reviewgraph.Path, error)
	Vertices(kinds ...reviewgraph.Kind) []reviewgraph.Label
}

// Entry is a candidate item and its recommendation value.
type Entry struct {
	Item  reviewgraph.Label
	Score float64
}

// PathSetValue scores the paths joining one item pair:
//
//	count(paths) * mean(average weight) * mean(length)
//
// An empty set is worth 0. The value is unnormalised and grows with graph
// density.
func PathSetValue(paths []reviewgraph.Path) float64 {
	if len(paths) == 0 {
		return 0
	}
	var weightSum, lengthSum float64
	for _, p := range paths {
		weightSum += p.AverageWeight()
		lengthSum += float64(p.Length())
	}
	n := float64(len(paths))
	return n * (weightSum / n) * (lengthSum / n)
}

// Config tunes a Recommender.
type Config struct {
	// Workers bounds how many seeds are scored concurrently. Values below 1
	// mean one.
	Workers int
	// MaxPaths caps paths enumerated per item pair. Zero disables the cap.
	MaxPaths int
}

// Recommender ranks candidate items for one or more seed items.
type Recommender struct {
	src    PathSource
	cfg    Config
	logger *slog.Logger
}

// New constructs a Recommender reading from src.
func New(src PathSource, cfg Config, logger *slog.Logger) *Recommender {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{src: src, cfg: cfg, logger: logger.With("component", "recommender")}
}

// PairValue enumerates the paths between two items and returns them with
// their value. Hitting the path cap is not an error; the partial set is
// scored.
func (r *Recommender) PairValue(seed, candidate reviewgraph.Label) ([]reviewgraph.Path, float64, error) {
	var opts []reviewgraph.PathOption
	if r.cfg.MaxPaths > 0 {
		opts = append(opts, reviewgraph.WithMaxPaths(r.cfg.MaxPaths))
	}

	paths, err := r.src.Paths(seed, candidate, opts...)
	if err != nil {
		if !errors.Is(err, reviewgraph.ErrPathLimit) {
			return nil, 0, err
		}
		r.logger.Debug("path limit reached", "seed", seed, "candidate", candidate, "paths", len(paths))
	}
	return paths, PathSetValue(paths), nil
}

// ForItem scores every other item against seed and returns those with a
// positive value, highest first. Equal scores are ordered by ascending label.
func (r *Recommender) ForItem(ctx context.Context, seed reviewgraph.Label) ([]Entry, error) {
	var out []Entry
	for _, candidate := range r.src.Vertices(reviewgraph.KindItem) {
		if candidate == seed {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, value, err := r.PairValue(seed, candidate)
		if err != nil {
			return nil, fmt.Errorf("score %q against %q: %w", seed, candidate, err)
		}
		if value > 0 {
			out = append(out, Entry{Item: candidate, Score: value})
		}
	}
	sortEntries(out)
	return out, nil
}

// Aggregate combines the per-seed rankings. A candidate's score is the mean
// of the values it received from the seeds that recommended it; seeds that
// did not recommend it do not pull the mean down. Seeds are scored
// concurrently. An empty seed list yields an empty result.
func (r *Recommender) Aggregate(ctx context.Context, seeds []reviewgraph.Label) ([]Entry, error) {
	seeds = dedupe(seeds)
	if len(seeds) == 0 {
		return []Entry{}, nil
	}

	perSeed := make([][]Entry, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, seed := range seeds {
		g.Go(func() error {
			entries, err := r.ForItem(gctx, seed)
			if err != nil {
				return err
			}
			perSeed[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type tally struct {
		sum   float64
		count int
	}
	tallies := make(map[reviewgraph.Label]*tally)
	for _, entries := range perSeed {
		for _, e := range entries {
			t, ok := tallies[e.Item]
			if !ok {
				t = &tally{}
				tallies[e.Item] = t
			}
			t.sum += e.Score
			t.count++
		}
	}

	out := make([]Entry, 0, len(tallies))
	for item, t := range tallies {
		out = append(out, Entry{Item: item, Score: t.sum / float64(t.count)})
	}
	sortEntries(out)

	r.logger.Debug("aggregate complete", "seeds", len(seeds), "candidates", len(out))
	return out, nil
}

// Rank is Aggregate without the scores.
func (r *Recommender) Rank(ctx context.Context, seeds []reviewgraph.Label) ([]reviewgraph.Label, error) {
	entries, err := r.Aggregate(ctx, seeds)
	if err != nil {
		return nil, err
	}
	labels := make([]reviewgraph.Label, len(entries))
	for i, e := range entries {
		labels[i] = e.Item
	}
	return labels, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Item < entries[j].Item
	})
}

func dedupe(seeds []reviewgraph.Label) []reviewgraph.Label {
	seen := make(map[reviewgraph.Label]struct{}, len(seeds))
	out := make([]reviewgraph.Label, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
