package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanshika/filmgraph/internal/generator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	def := generator.DefaultConfig()
	var (
		films           int
		reviewers       int
		reviewsPerFilm  int
		nullChance      float64
		favouriteChance float64
		seed            int64
		outputDir       string
		writeStdout     bool
	)

	cmd := &cobra.Command{
		Use:          "filmgraph-datagen",
		Short:        "Generate a synthetic per-film review dataset",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			genCfg := generator.Config{
				NumFilms:        films,
				NumReviewers:    reviewers,
				ReviewsPerFilm:  reviewsPerFilm,
				NullChance:      clampProbability(nullChance),
				FavouriteChance: clampProbability(favouriteChance),
				Seed:            seed,
			}
			return run(genCfg, outputDir, writeStdout)
		},
	}
	cmd.Flags().IntVar(&films, "films", def.NumFilms, "number of films to generate")
	cmd.Flags().IntVar(&reviewers, "reviewers", def.NumReviewers, "number of distinct reviewers")
	cmd.Flags().IntVar(&reviewsPerFilm, "reviews-per-film", def.ReviewsPerFilm, "mean number of reviews per film")
	cmd.Flags().Float64Var(&nullChance, "null-chance", def.NullChance, "probability of a review without a score")
	cmd.Flags().Float64Var(&favouriteChance, "favourite-chance", def.FavouriteChance, "probability that a review comes from a prolific reviewer")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "random seed for deterministic generation")
	cmd.Flags().StringVar(&outputDir, "output-dir", "data/reviews", "directory to write the review files")
	cmd.Flags().BoolVar(&writeStdout, "stdout", false, "write the dataset as JSON to stdout instead of files")
	return cmd
}

func run(genCfg generator.Config, outputDir string, writeStdout bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ds, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		return err
	}

	if writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(ds); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			return err
		}
		return nil
	}

	if err := generator.WriteDataset(ds, outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		return err
	}

	rows := 0
	for _, film := range ds.Films {
		rows += len(film.Ratings)
	}
	fmt.Fprintf(os.Stdout, "Generated %d films with %d reviews into %s\n", len(ds.Films), rows, outputDir)
	return nil
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
