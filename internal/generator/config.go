package generator

// Config drives the synthetic review dataset generator.
type Config struct {
	NumFilms     int
	NumReviewers int
	// ReviewsPerFilm is the mean number of reviews a film receives.
	ReviewsPerFilm int
	// NullChance is the probability that a review row has no score.
	NullChance float64
	// FavouriteChance is the probability that a review goes to one of the
	// few prolific reviewers, which keeps the graph connected.
	FavouriteChance float64
	Seed            int64
}

// DefaultConfig returns baseline settings for a small but connected dataset.
func DefaultConfig() Config {
	return Config{
		NumFilms:        60,
		NumReviewers:    400,
		ReviewsPerFilm:  25,
		NullChance:      0.05,
		FavouriteChance: 0.2,
		Seed:            42,
	}
}
