package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/vanshika/filmgraph/internal/domain"
	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

type stubFiles struct {
	appended map[string]map[reviewgraph.Label]int
	err      error
}

func (s *stubFiles) AppendReviewer(reviewer string, ratings map[reviewgraph.Label]int) error {
	if s.err != nil {
		return s.err
	}
	if s.appended == nil {
		s.appended = make(map[string]map[reviewgraph.Label]int)
	}
	s.appended[reviewer] = ratings
	return nil
}

type stubRepository struct {
	reviews []domain.Review
	err     error
}

func (s *stubRepository) UpsertReviews(ctx context.Context, reviews []domain.Review) error {
	if s.err != nil {
		return s.err
	}
	s.reviews = append(s.reviews, reviews...)
	return nil
}

type stubSnapshots struct {
	invalidated int
}

func (s *stubSnapshots) Invalidate(context.Context) error {
	s.invalidated++
	return nil
}

// fixtureGraph: ann liked Alien and Vertigo, bob liked Alien and Heat,
// cat liked Heat and Ran. Zodiac has no reviews.
func fixtureGraph(t *testing.T) *reviewgraph.Graph {
	t.Helper()
	g := reviewgraph.New()
	err := g.Update(func(m *reviewgraph.Mutator) error {
		for _, item := range []reviewgraph.Label{"Alien (1979)", "Heat (1995)", "Ran (1985)", "Vertigo (1958)", "Zodiac (2007)"} {
			if err := m.AddVertex(item, reviewgraph.KindItem); err != nil {
				return err
			}
		}
		for _, r := range []struct {
			who   reviewgraph.Label
			item  reviewgraph.Label
			score int
		}{
			{"ann", "Alien (1979)", 8},
			{"ann", "Vertigo (1958)", 9},
			{"bob", "Alien (1979)", 7},
			{"bob", "Heat (1995)", 6},
			{"cat", "Heat (1995)", 10},
			{"cat", "Ran (1985)", 9},
		} {
			if err := m.AddVertex(r.who, reviewgraph.KindReviewer); err != nil {
				return err
			}
			if err := m.AddEdge(r.who, r.item, r.score); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return g
}

func newTestService(t *testing.T, deps Dependencies, opts Options) *RecommendationService {
	t.Helper()
	if deps.Graph == nil {
		deps.Graph = fixtureGraph(t)
	}
	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRecommendationService(deps, opts)
}

func TestRecommendationService_ListItems(t *testing.T) {
	svc := newTestService(t, Dependencies{}, Options{})

	page, err := svc.ListItems(context.Background(), ListItemsParams{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].Title != "Alien (1979)" || page.Items[0].Reviewers != 2 {
		t.Fatalf("unexpected first page %+v", page.Items)
	}
	if page.Pagination.TotalItems != 5 || page.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}

	page, err = svc.ListItems(context.Background(), ListItemsParams{Search: "  r"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "Ran (1985)" {
		t.Fatalf("expected prefix match on Ran, got %+v", page.Items)
	}
	if page.Pagination.PageSize != defaultListPageSize {
		t.Errorf("expected default page size, got %d", page.Pagination.PageSize)
	}

	page, err = svc.ListItems(context.Background(), ListItemsParams{Page: 9, PageSize: 2})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected empty page beyond the end, got %+v", page.Items)
	}
}

func TestRecommendationService_Recommend(t *testing.T) {
	svc := newTestService(t, Dependencies{}, Options{Workers: 2})

	page, err := svc.Recommend(context.Background(), RecommendParams{Items: []string{"Alien (1979)"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Alien-ann-Vertigo: 17*3 = 51; Alien-bob-Heat: 13*3 = 39;
	// Alien-bob-Heat-cat-Ran: (7+6+10+9)/2 * 5 = 80.
	want := []domain.Recommendation{
		{Item: "Ran (1985)", Score: 80},
		{Item: "Vertigo (1958)", Score: 51},
		{Item: "Heat (1995)", Score: 39},
	}
	if len(page.Items) != len(want) {
		t.Fatalf("expected %d recommendations, got %+v", len(want), page.Items)
	}
	for i := range want {
		if page.Items[i] != want[i] {
			t.Errorf("rank %d: want %+v got %+v", i, want[i], page.Items[i])
		}
	}
	if page.Pagination.PageSize != defaultRecommendPageSize || page.Pagination.TotalItems != 3 {
		t.Errorf("unexpected pagination %+v", page.Pagination)
	}
}

func TestRecommendationService_RecommendExcludesSeeds(t *testing.T) {
	svc := newTestService(t, Dependencies{}, Options{})

	page, err := svc.Recommend(context.Background(), RecommendParams{
		Items:    []string{"Alien (1979)", "Heat (1995)", "Alien (1979)"},
		PageSize: 1,
		Page:     1,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if page.Pagination.TotalItems != 2 {
		t.Fatalf("expected Ran and Vertigo only, got total %d", page.Pagination.TotalItems)
	}
	for _, rec := range page.Items {
		if rec.Item == "Alien (1979)" || rec.Item == "Heat (1995)" {
			t.Fatalf("seed %s must not be recommended", rec.Item)
		}
	}
}

func TestRecommendationService_RecommendEmptySeeds(t *testing.T) {
	svc := newTestService(t, Dependencies{}, Options{})

	page, err := svc.Recommend(context.Background(), RecommendParams{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page.Items) != 0 || page.Pagination.TotalItems != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestRecommendationService_RecommendValidation(t *testing.T) {
	svc := newTestService(t, Dependencies{}, Options{})

	if _, err := svc.Recommend(context.Background(), RecommendParams{Items: []string{"Nope (2000)"}}); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	if _, err := svc.Recommend(context.Background(), RecommendParams{Items: []string{"ann"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a reviewer seed, got %v", err)
	}
	if _, err := svc.Recommend(context.Background(), RecommendParams{Items: []string{" "}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a blank seed, got %v", err)
	}
}

func TestRecommendationService_ExplainPair(t *testing.T) {
	svc := newTestService(t, Dependencies{}, Options{})

	exp, err := svc.ExplainPair(context.Background(), "Alien (1979)", "Ran (1985)")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if exp.Value != 80 || exp.Truncated {
		t.Fatalf("unexpected explanation %+v", exp)
	}
	if len(exp.Paths) != 1 || exp.Paths[0].Length != 5 || exp.Paths[0].Weight != 32 || exp.Paths[0].AverageWeight != 16 {
		t.Fatalf("unexpected paths %+v", exp.Paths)
	}
	if exp.Paths[0].Vertices[2] != "Heat (1995)" {
		t.Errorf("expected the path to run through Heat, got %v", exp.Paths[0].Vertices)
	}

	if _, err := svc.ExplainPair(context.Background(), "Alien (1979)", "Alien (1979)"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for identical endpoints, got %v", err)
	}
	if _, err := svc.ExplainPair(context.Background(), "Alien (1979)", "Nope (2000)"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}

	exp, err = svc.ExplainPair(context.Background(), "Alien (1979)", "Zodiac (2007)")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if exp.Value != 0 || len(exp.Paths) != 0 {
		t.Fatalf("expected no evidence for an unreviewed item, got %+v", exp)
	}
}

func TestRecommendationService_ExplainPairTruncated(t *testing.T) {
	g := fixtureGraph(t)
	if err := g.AddEdge("cat", "Alien (1979)", 6); err != nil {
		t.Fatalf("add edge: %v", err)
	}
	svc := newTestService(t, Dependencies{Graph: g}, Options{MaxPaths: 1})

	exp, err := svc.ExplainPair(context.Background(), "Alien (1979)", "Heat (1995)")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !exp.Truncated || len(exp.Paths) != 1 {
		t.Fatalf("expected one path and a truncation flag, got %+v", exp)
	}
}

func TestRecommendationService_SubmitReviewer(t *testing.T) {
	files := &stubFiles{}
	repo := &stubRepository{}
	snaps := &stubSnapshots{}
	svc := newTestService(t, Dependencies{Files: files, Repository: repo, Snapshots: snaps}, Options{})

	res, err := svc.SubmitReviewer(context.Background(), ReviewerInput{
		Name:    "  dee ",
		Ratings: map[string]int{"Zodiac (2007)": 9, "Ran (1985)": 7, "Heat (1995)": 3},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Reviewer != "dee" || res.Applied != 2 || res.Stored != 3 {
		t.Fatalf("unexpected result %+v", res)
	}

	if len(files.appended["dee"]) != 3 {
		t.Fatalf("expected all ratings appended, got %+v", files.appended)
	}
	if snaps.invalidated != 1 {
		t.Errorf("expected snapshot invalidation, got %d", snaps.invalidated)
	}
	if len(repo.reviews) != 2 || repo.reviews[0].Item != "Ran (1985)" || repo.reviews[1].Score != 9 {
		t.Errorf("unexpected write-through %+v", repo.reviews)
	}

	// Zodiac is now reachable from Heat through cat and dee.
	exp, err := svc.ExplainPair(context.Background(), "Heat (1995)", "Zodiac (2007)")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(exp.Paths) != 1 {
		t.Fatalf("expected the new reviewer to bridge Heat and Zodiac, got %+v", exp.Paths)
	}
}

func TestRecommendationService_SubmitReviewerValidation(t *testing.T) {
	files := &stubFiles{}
	svc := newTestService(t, Dependencies{Files: files}, Options{})

	tests := []struct {
		name  string
		input ReviewerInput
		want  error
	}{
		{name: "blank name", input: ReviewerInput{Name: " ", Ratings: map[string]int{"Ran (1985)": 8}}, want: ErrValidation},
		{name: "multi-line name", input: ReviewerInput{Name: "a\nb", Ratings: map[string]int{"Ran (1985)": 8}}, want: ErrValidation},
		{name: "name is a title", input: ReviewerInput{Name: "Ran (1985)", Ratings: map[string]int{"Heat (1995)": 8}}, want: ErrValidation},
		{name: "no ratings", input: ReviewerInput{Name: "dee"}, want: ErrValidation},
		{name: "score too high", input: ReviewerInput{Name: "dee", Ratings: map[string]int{"Ran (1985)": 11}}, want: ErrValidation},
		{name: "score too low", input: ReviewerInput{Name: "dee", Ratings: map[string]int{"Ran (1985)": 0}}, want: ErrValidation},
		{name: "unknown title", input: ReviewerInput{Name: "dee", Ratings: map[string]int{"Ran (1985)": 8, "Nope (2000)": 8}}, want: ErrUnknownItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := svc.Stats()
			_, err := svc.SubmitReviewer(context.Background(), tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if svc.Stats() != before {
				t.Fatalf("rejected submission changed the graph")
			}
		})
	}
	if len(files.appended) != 0 {
		t.Fatalf("rejected submissions must not touch the dataset, got %+v", files.appended)
	}
}

func TestRecommendationService_SubmitReviewerStorageFailure(t *testing.T) {
	files := &stubFiles{err: errors.New("disk full")}
	svc := newTestService(t, Dependencies{Files: files}, Options{})

	before := svc.Stats()
	if _, err := svc.SubmitReviewer(context.Background(), ReviewerInput{Name: "dee", Ratings: map[string]int{"Ran (1985)": 8}}); err == nil {
		t.Fatalf("expected storage failure")
	}
	if svc.Stats() != before {
		t.Fatalf("graph must not change when the dataset write fails")
	}
}

func TestRecommendationService_SubmitReviewerRepositoryFailureIsLogged(t *testing.T) {
	repo := &stubRepository{err: errors.New("neo4j down")}
	svc := newTestService(t, Dependencies{Repository: repo}, Options{})

	res, err := svc.SubmitReviewer(context.Background(), ReviewerInput{Name: "dee", Ratings: map[string]int{"Ran (1985)": 8}})
	if err != nil {
		t.Fatalf("write-through failures must not fail the submission, got %v", err)
	}
	if res.Applied != 1 || res.Stored != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRecommendationService_HugePageIsEmpty(t *testing.T) {
	svc := newTestService(t, Dependencies{}, Options{})

	list, err := svc.ListItems(context.Background(), ListItemsParams{Page: math.MaxInt, PageSize: 50})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list.Items) != 0 || list.Pagination.TotalItems != 5 {
		t.Fatalf("expected an empty page past the end, got %+v", list)
	}

	recs, err := svc.Recommend(context.Background(), RecommendParams{Items: []string{"Alien (1979)"}, Page: math.MaxInt, PageSize: maxPageSize})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(recs.Items) != 0 {
		t.Fatalf("expected an empty page past the end, got %+v", recs.Items)
	}
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		page, size, total int
		lo, hi            int
	}{
		{1, 5, 11, 0, 5},
		{3, 5, 11, 10, 11},
		{4, 5, 11, 11, 11},
		{math.MaxInt, 50, 1, 1, 1},
		{math.MaxInt / 2, 3, 0, 0, 0},
	}
	for _, tt := range tests {
		lo, hi := pageBounds(tt.page, tt.size, tt.total)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("pageBounds(%d, %d, %d) = %d, %d; want %d, %d", tt.page, tt.size, tt.total, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestRecommendationService_SubmitReviewerHonoursThreshold(t *testing.T) {
	repo := &stubRepository{}
	svc := newTestService(t, Dependencies{Files: &stubFiles{}, Repository: repo}, Options{MinScore: 8})

	res, err := svc.SubmitReviewer(context.Background(), ReviewerInput{
		Name:    "eve",
		Ratings: map[string]int{"Ran (1985)": 7, "Zodiac (2007)": 8, "Heat (1995)": 10},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Applied != 2 || res.Stored != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(repo.reviews) != 2 || repo.reviews[0].Item != "Heat (1995)" || repo.reviews[1].Item != "Zodiac (2007)" {
		t.Fatalf("expected only reviews at or above the threshold, got %+v", repo.reviews)
	}
}

func TestBuildPaginationMeta(t *testing.T) {
	meta := buildPaginationMeta(2, 5, 11)
	if meta.TotalPages != 3 || meta.Page != 2 || meta.TotalItems != 11 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := buildPaginationMeta(1, 5, 0); got.TotalPages != 0 {
		t.Fatalf("expected zero pages for an empty result, got %+v", got)
	}
}
