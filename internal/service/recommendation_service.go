package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vanshika/filmgraph/internal/dataset"
	"github.com/vanshika/filmgraph/internal/domain"
	"github.com/vanshika/filmgraph/internal/metrics"
	"github.com/vanshika/filmgraph/internal/recommend"
	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

const (
	defaultRecommendPageSize = 5
	defaultListPageSize      = 50
	maxPageSize              = 200
)

// ReviewRepository mirrors accepted reviews into an external store.
type ReviewRepository interface {
	UpsertReviews(ctx context.Context, reviews []domain.Review) error
}

// ReviewFiles appends reviewer observations to the dataset.
type ReviewFiles interface {
	AppendReviewer(reviewer string, ratings map[reviewgraph.Label]int) error
}

// SnapshotInvalidator discards a persisted graph once it is stale.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Options tunes a RecommendationService.
type Options struct {
	// Workers bounds concurrent seed scoring.
	Workers int
	// MaxPaths caps paths enumerated per item pair. Zero disables the cap.
	MaxPaths int
	// PageSize is the default recommendation page size.
	PageSize int
	// MinScore is the lowest score kept as a positive review.
	MinScore int
}

// Dependencies are the collaborators of a RecommendationService. Only Graph
// is required.
type Dependencies struct {
	Graph      *reviewgraph.Graph
	Files      ReviewFiles
	Repository ReviewRepository
	Snapshots  SnapshotInvalidator
	Logger     *slog.Logger
}

// RecommendationService serves the catalogue, recommendations, pair
// explanations and reviewer submissions over one shared review graph.
type RecommendationService struct {
	graph       *reviewgraph.Graph
	recommender *recommend.Recommender
	files       ReviewFiles
	repo        ReviewRepository
	snapshots   SnapshotInvalidator
	opts        Options
	logger      *slog.Logger
	nowFn       func() time.Time
}

// NewRecommendationService constructs a RecommendationService.
func NewRecommendationService(deps Dependencies, opts Options) *RecommendationService {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultRecommendPageSize
	}
	if opts.MinScore <= 0 {
		opts.MinScore = dataset.DefaultMinScore
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendationService{
		graph: deps.Graph,
		recommender: recommend.New(deps.Graph, recommend.Config{
			Workers:  opts.Workers,
			MaxPaths: opts.MaxPaths,
		}, logger),
		files:     deps.Files,
		repo:      deps.Repository,
		snapshots: deps.Snapshots,
		opts:      opts,
		logger:    logger.With("component", "recommendation_service"),
		nowFn:     time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *RecommendationService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Stats returns the current graph size.
func (s *RecommendationService) Stats() reviewgraph.Stats {
	return s.graph.Stats()
}

// ListItems returns catalogue entries sorted by title.
func (s *RecommendationService) ListItems(ctx context.Context, params ListItemsParams) (ItemsPage, error) {
	if err := ctx.Err(); err != nil {
		return ItemsPage{}, err
	}
	page, pageSize := normalizePagination(params.Page, params.PageSize, defaultListPageSize)
	prefix := strings.ToLower(strings.TrimSpace(params.Search))

	var matches []reviewgraph.Label
	for _, title := range s.graph.Vertices(reviewgraph.KindItem) {
		if prefix == "" || strings.HasPrefix(strings.ToLower(string(title)), prefix) {
			matches = append(matches, title)
		}
	}

	lo, hi := pageBounds(page, pageSize, len(matches))
	items := make([]domain.ItemSummary, 0, hi-lo)
	for _, title := range matches[lo:hi] {
		neighbours, err := s.graph.Neighbors(title)
		if err != nil {
			return ItemsPage{}, err
		}
		items = append(items, domain.ItemSummary{Title: string(title), Reviewers: len(neighbours)})
	}

	return ItemsPage{
		Items:      items,
		Pagination: buildPaginationMeta(page, pageSize, int64(len(matches))),
	}, nil
}

// Recommend ranks every item reachable from the seeds and returns one page.
// Seeds never appear in their own ranking. An empty seed list yields an
// empty page.
func (s *RecommendationService) Recommend(ctx context.Context, params RecommendParams) (RecommendationsPage, error) {
	page, pageSize := normalizePagination(params.Page, params.PageSize, s.opts.PageSize)

	seeds := make([]reviewgraph.Label, 0, len(params.Items))
	isSeed := make(map[reviewgraph.Label]struct{}, len(params.Items))
	for _, raw := range params.Items {
		label, err := s.requireItem(raw)
		if err != nil {
			return RecommendationsPage{}, err
		}
		if _, dup := isSeed[label]; dup {
			continue
		}
		isSeed[label] = struct{}{}
		seeds = append(seeds, label)
	}

	start := s.nowFn()
	entries, err := s.recommender.Aggregate(ctx, seeds)
	if err != nil {
		return RecommendationsPage{}, fmt.Errorf("recommend: %w", err)
	}

	ranked := make([]domain.Recommendation, 0, len(entries))
	for _, e := range entries {
		if _, ok := isSeed[e.Item]; ok {
			continue
		}
		ranked = append(ranked, domain.Recommendation{Item: string(e.Item), Score: e.Score})
	}
	elapsed := s.nowFn().Sub(start)
	metrics.RecordRecommendation(len(ranked), elapsed)
	s.logger.Info("recommendation complete", "seeds", len(seeds), "candidates", len(ranked), "duration", elapsed)

	lo, hi := pageBounds(page, pageSize, len(ranked))
	return RecommendationsPage{
		Items:      ranked[lo:hi],
		Pagination: buildPaginationMeta(page, pageSize, int64(len(ranked))),
	}, nil
}

// ExplainPair lists every bounded path between two items together with the
// pair's recommendation value. Paths are ordered shortest first, then by
// descending average weight.
func (s *RecommendationService) ExplainPair(ctx context.Context, source, target string) (domain.PairExplanation, error) {
	if err := ctx.Err(); err != nil {
		return domain.PairExplanation{}, err
	}
	a, err := s.requireItem(source)
	if err != nil {
		return domain.PairExplanation{}, err
	}
	b, err := s.requireItem(target)
	if err != nil {
		return domain.PairExplanation{}, err
	}
	if a == b {
		return domain.PairExplanation{}, fmt.Errorf("%w: source and target must differ", ErrValidation)
	}

	var pathOpts []reviewgraph.PathOption
	if s.opts.MaxPaths > 0 {
		pathOpts = append(pathOpts, reviewgraph.WithMaxPaths(s.opts.MaxPaths))
	}
	paths, err := s.graph.Paths(a, b, pathOpts...)
	truncated := errors.Is(err, reviewgraph.ErrPathLimit)
	if err != nil && !truncated {
		return domain.PairExplanation{}, err
	}

	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Length() != paths[j].Length() {
			return paths[i].Length() < paths[j].Length()
		}
		if paths[i].AverageWeight() != paths[j].AverageWeight() {
			return paths[i].AverageWeight() > paths[j].AverageWeight()
		}
		return joinLabels(paths[i].Vertices) < joinLabels(paths[j].Vertices)
	})

	views := make([]domain.PathView, 0, len(paths))
	for _, p := range paths {
		vertices := make([]string, len(p.Vertices))
		for i, v := range p.Vertices {
			vertices[i] = string(v)
		}
		views = append(views, domain.PathView{
			Vertices:      vertices,
			Length:        p.Length(),
			Weight:        p.Weight,
			AverageWeight: p.AverageWeight(),
		})
	}

	return domain.PairExplanation{
		Source:    string(a),
		Target:    string(b),
		Value:     recommend.PathSetValue(paths),
		Paths:     views,
		Truncated: truncated,
	}, nil
}

// SubmitReviewer records a new reviewer's ratings. Every title is validated
// before anything changes. Ratings are appended to the dataset, positive
// ones are added to the graph, the persisted snapshot is discarded and,
// when a repository is configured, the positive reviews are written through.
func (s *RecommendationService) SubmitReviewer(ctx context.Context, input ReviewerInput) (SubmitResult, error) {
	result, err := s.submitReviewer(ctx, input)
	switch {
	case err == nil:
		metrics.RecordSubmission("accepted")
	case errors.Is(err, ErrValidation) || errors.Is(err, ErrUnknownItem):
		metrics.RecordSubmission("rejected")
	default:
		metrics.RecordSubmission("failed")
	}
	return result, err
}

func (s *RecommendationService) submitReviewer(ctx context.Context, input ReviewerInput) (SubmitResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return SubmitResult{}, fmt.Errorf("%w: reviewer name is required", ErrValidation)
	}
	if strings.ContainsAny(name, "\r\n") {
		return SubmitResult{}, fmt.Errorf("%w: reviewer name must be a single line", ErrValidation)
	}
	if kind, ok := s.graph.Kind(reviewgraph.Label(name)); ok && kind != reviewgraph.KindReviewer {
		return SubmitResult{}, fmt.Errorf("%w: %q is an item title", ErrValidation, name)
	}
	if len(input.Ratings) == 0 {
		return SubmitResult{}, fmt.Errorf("%w: at least one rating is required", ErrValidation)
	}

	ratings := make(map[reviewgraph.Label]int, len(input.Ratings))
	for raw, score := range input.Ratings {
		title, err := s.requireItem(raw)
		if err != nil {
			return SubmitResult{}, err
		}
		if score < 1 || score > dataset.MaxScore {
			return SubmitResult{}, fmt.Errorf("%w: score for %q must be between 1 and %d", ErrValidation, title, dataset.MaxScore)
		}
		ratings[title] = score
	}
	if err := ctx.Err(); err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{Reviewer: name}
	if s.files != nil {
		if err := s.files.AppendReviewer(name, ratings); err != nil {
			return SubmitResult{}, fmt.Errorf("store ratings: %w", err)
		}
		result.Stored = len(ratings)
	}

	records := dataset.Records(name, ratings, s.opts.MinScore)

	err := s.graph.Update(func(m *reviewgraph.Mutator) error {
		applied, err := dataset.ApplyRecords(m, records)
		result.Applied = applied
		return err
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("apply ratings: %w", err)
	}
	metrics.SetGraphSize(s.graph.Stats())

	if s.snapshots != nil && result.Applied > 0 {
		if err := s.snapshots.Invalidate(ctx); err != nil {
			s.logger.Warn("snapshot invalidation failed", "error", err)
		}
	}

	if s.repo != nil && len(records) > 0 {
		reviews := make([]domain.Review, len(records))
		for i, rec := range records {
			reviews[i] = domain.Review{Reviewer: string(rec.Reviewer), Item: string(rec.Item), Score: rec.Score}
		}
		if err := s.repo.UpsertReviews(ctx, reviews); err != nil {
			s.logger.Warn("review write-through failed", "reviewer", name, "error", err)
		}
	}

	s.logger.Info("reviewer submitted", "reviewer", name, "ratings", len(ratings), "applied", result.Applied)
	return result, nil
}

func (s *RecommendationService) requireItem(raw string) (reviewgraph.Label, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", fmt.Errorf("%w: item title is required", ErrValidation)
	}
	label := reviewgraph.Label(title)
	kind, ok := s.graph.Kind(label)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownItem, title)
	}
	if kind != reviewgraph.KindItem {
		return "", fmt.Errorf("%w: %q is not an item", ErrValidation, title)
	}
	return label, nil
}

func joinLabels(labels []reviewgraph.Label) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\x00")
}

func normalizePagination(page, pageSize, defaultSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// pageBounds expects a normalised page and page size.
func pageBounds(page, pageSize, total int) (int, int) {
	if page-1 > total/pageSize {
		return total, total
	}
	lo := (page - 1) * pageSize
	if lo > total {
		lo = total
	}
	hi := lo + pageSize
	if hi > total {
		hi = total
	}
	return lo, hi
}

func buildPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
		if total > 0 && totalPages == 0 {
			totalPages = 1
		}
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
