package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

// Rating is one row of a film's review file. A nil Score is written as Null.
type Rating struct {
	Reviewer string `json:"reviewer"`
	Score    *int   `json:"score"`
}

// Film is a title and its review rows.
type Film struct {
	Title   reviewgraph.Label `json:"title"`
	Ratings []Rating          `json:"ratings"`
}

// Dataset contains the generated films.
type Dataset struct {
	Films []Film `json:"films"`
}

// Generator produces synthetic per-film review data.
type Generator struct {
	cfg           Config
	rand          *rand.Rand
	nameFragments nameFragments
}

type nameFragments struct {
	first      []string
	last       []string
	adjectives []string
	nouns      []string
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumFilms <= 0 {
		cfg.NumFilms = def.NumFilms
	}
	if cfg.NumReviewers <= 0 {
		cfg.NumReviewers = def.NumReviewers
	}
	if cfg.ReviewsPerFilm <= 0 {
		cfg.ReviewsPerFilm = def.ReviewsPerFilm
	}
	if cfg.ReviewsPerFilm > cfg.NumReviewers {
		cfg.ReviewsPerFilm = cfg.NumReviewers
	}
	if cfg.NullChance < 0 {
		cfg.NullChance = 0
	}
	if cfg.FavouriteChance <= 0 {
		cfg.FavouriteChance = def.FavouriteChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:           cfg,
		rand:          rand.New(rand.NewSource(cfg.Seed)),
		nameFragments: defaultNameFragments(),
	}
}

// Generate synthesises films and their reviews. It respects context
// cancellation. Titles are unique and reviewers never review the same film
// twice.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	reviewers := g.reviewerNames()
	favourites := reviewers[:max(1, len(reviewers)/20)]

	titles := make(map[reviewgraph.Label]struct{}, g.cfg.NumFilms)
	films := make([]Film, 0, g.cfg.NumFilms)
	for len(films) < g.cfg.NumFilms {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		title := g.randomTitle(len(films))
		if _, dup := titles[title]; dup {
			continue
		}
		titles[title] = struct{}{}

		count := g.reviewCount()
		seen := make(map[string]struct{}, count)
		film := Film{Title: title, Ratings: make([]Rating, 0, count)}
		for len(film.Ratings) < count {
			pool := reviewers
			if len(seen) < len(favourites) && g.rand.Float64() < g.cfg.FavouriteChance {
				pool = favourites
			}
			name := pool[g.rand.Intn(len(pool))]
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			film.Ratings = append(film.Ratings, Rating{Reviewer: name, Score: g.randomScore()})
		}
		films = append(films, film)
	}

	sort.Slice(films, func(i, j int) bool { return films[i].Title < films[j].Title })
	return Dataset{Films: films}, nil
}

func (g *Generator) reviewerNames() []string {
	names := make([]string, g.cfg.NumReviewers)
	for i := range names {
		first := g.nameFragments.first[g.rand.Intn(len(g.nameFragments.first))]
		last := g.nameFragments.last[g.rand.Intn(len(g.nameFragments.last))]
		names[i] = fmt.Sprintf("%s %s %d", first, last, i+1)
	}
	return names
}

// reviewCount varies around the configured mean by up to half of it.
func (g *Generator) reviewCount() int {
	mean := g.cfg.ReviewsPerFilm
	spread := mean / 2
	n := mean
	if spread > 0 {
		n = mean - spread + g.rand.Intn(2*spread+1)
	}
	return min(max(n, 1), g.cfg.NumReviewers)
}

func (g *Generator) randomTitle(idx int) reviewgraph.Label {
	adj := g.nameFragments.adjectives[g.rand.Intn(len(g.nameFragments.adjectives))]
	noun := g.nameFragments.nouns[g.rand.Intn(len(g.nameFragments.nouns))]
	year := 1920 + g.rand.Intn(105)
	if idx >= len(g.nameFragments.adjectives)*len(g.nameFragments.nouns)/2 {
		return reviewgraph.Label(fmt.Sprintf("The %s %s %d (%d)", adj, noun, idx, year))
	}
	return reviewgraph.Label(fmt.Sprintf("The %s %s (%d)", adj, noun, year))
}

// randomScore skews towards the upper half of the scale.
func (g *Generator) randomScore() *int {
	if g.rand.Float64() < g.cfg.NullChance {
		return nil
	}
	score := 1 + g.rand.Intn(10)
	if score < 5 && g.rand.Float64() < 0.5 {
		score += 5
	}
	return &score
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first:      []string{"Jane", "John", "Alex", "Priya", "Liu", "Maria", "Omar", "Sofia", "Noah", "Emma", "Lucas", "Mia", "Ava", "Ethan", "Zara"},
		last:       []string{"Doe", "Smith", "Chen", "Patel", "Garcia", "Khan", "Kim", "Ivanov", "Nguyen", "Silva", "Brown", "Lee"},
		adjectives: []string{"Silent", "Crimson", "Last", "Hidden", "Broken", "Golden", "Distant", "Midnight", "Lonely", "Electric", "Frozen", "Wild"},
		nouns:      []string{"Harbour", "Station", "Garden", "Letter", "Kingdom", "Mirror", "Frontier", "Orchestra", "Lighthouse", "Summer", "Witness", "Road"},
	}
}
