package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanshika/filmgraph/internal/app"
	"github.com/vanshika/filmgraph/internal/config"
	"github.com/vanshika/filmgraph/internal/logging"
	"github.com/vanshika/filmgraph/internal/service"
)

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type queryOptions struct {
	page     int
	pageSize int
	asJSON   bool
	explain  string
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		configPath string
		opts       queryOptions
	)

	cmd := &cobra.Command{
		Use:   "filmgraph-recommend TITLE [TITLE...]",
		Short: "Rank films for viewers who liked the given titles",
		Example: `  filmgraph-recommend "Vertigo (1958)" "Alien (1979)"
  filmgraph-recommend --page 2 "Vertigo (1958)"
  filmgraph-recommend --explain "Rear Window (1954)" "Vertigo (1958)"`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.explain != "" && len(args) != 1 {
				return fmt.Errorf("--explain takes exactly one seed title, got %d", len(args))
			}
			logger := logging.NewWithWriter(cfg.Logging, cmd.ErrOrStderr())

			a, err := app.Open(cmd.Context(), cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			return query(cmd.Context(), out, a.Service, args, opts)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Optional YAML config file")
	cmd.Flags().IntVar(&opts.page, "page", 1, "Page of the ranking to print")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "Titles per page (defaults to RECOMMEND_PAGE_SIZE)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of text")
	cmd.Flags().StringVar(&opts.explain, "explain", "", "Print the paths between the seed and this title instead of a ranking")
	return cmd
}

func query(ctx context.Context, out io.Writer, svc *service.RecommendationService, seeds []string, opts queryOptions) error {
	if opts.explain != "" {
		explanation, err := svc.ExplainPair(ctx, seeds[0], opts.explain)
		if err != nil {
			return err
		}
		if opts.asJSON {
			return json.NewEncoder(out).Encode(explanation)
		}
		fmt.Fprintf(out, "%s -> %s: value %.2f, %d paths\n", explanation.Source, explanation.Target, explanation.Value, len(explanation.Paths))
		for _, p := range explanation.Paths {
			fmt.Fprintf(out, "  [%d, avg %.2f] %s\n", p.Length, p.AverageWeight, strings.Join(p.Vertices, " - "))
		}
		if explanation.Truncated {
			fmt.Fprintln(out, "  (path limit reached)")
		}
		return nil
	}

	page, err := svc.Recommend(ctx, service.RecommendParams{
		Items:    seeds,
		Page:     opts.page,
		PageSize: opts.pageSize,
	})
	if err != nil {
		return err
	}
	if opts.asJSON {
		return json.NewEncoder(out).Encode(page)
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(out, "no recommendations")
		return nil
	}
	rank := (page.Pagination.Page-1)*page.Pagination.PageSize + 1
	for i, rec := range page.Items {
		fmt.Fprintf(out, "%3d. %s (%.2f)\n", rank+i, rec.Item, rec.Score)
	}
	fmt.Fprintf(out, "page %d of %d\n", page.Pagination.Page, page.Pagination.TotalPages)
	return nil
}
