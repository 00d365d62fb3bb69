package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/vanshika/filmgraph/internal/dataset"
	"github.com/vanshika/filmgraph/internal/domain"
	"github.com/vanshika/filmgraph/internal/graph"
	"github.com/vanshika/filmgraph/internal/reviewgraph"
)

const (
	defaultBatchSize = 500
	loadPageSize     = 5000
)

// ListItemsOptions filters and pages the item catalogue.
type ListItemsOptions struct {
	Search string
	Limit  int
	Offset int
}

// Repository mirrors reviews into a Neo4j database as
// (:Reviewer)-[:REVIEWED {score}]->(:Item).
type Repository struct {
	client    graph.Client
	batchSize int
}

// New returns a Repository writing batches of the default size.
func New(client graph.Client) *Repository {
	return &Repository{client: client, batchSize: defaultBatchSize}
}

// WithBatchSize overrides how many reviews are sent per statement.
func (r *Repository) WithBatchSize(n int) *Repository {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// EnsureSchema creates the uniqueness constraints the MERGE statements rely on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		if _, err := r.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertReviews merges reviewers, items and REVIEWED relationships in
// batches. Re-sending a review overwrites its score.
func (r *Repository) UpsertReviews(ctx context.Context, reviews []domain.Review) error {
	for start := 0; start < len(reviews); start += r.batchSize {
		end := start + r.batchSize
		if end > len(reviews) {
			end = len(reviews)
		}
		rows := make([]map[string]any, 0, end-start)
		for _, rv := range reviews[start:end] {
			rows = append(rows, map[string]any{
				"reviewer": rv.Reviewer,
				"item":     rv.Item,
				"score":    rv.Score,
			})
		}
		if _, err := r.client.ExecuteWrite(ctx, upsertReviewsCypher, map[string]any{"rows": rows}); err != nil {
			return fmt.Errorf("upsert reviews %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// UpsertItems merges item nodes so films without positive reviews are still
// listed.
func (r *Repository) UpsertItems(ctx context.Context, titles []string) error {
	if len(titles) == 0 {
		return nil
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertItemsCypher, map[string]any{"titles": titles}); err != nil {
		return fmt.Errorf("upsert items: %w", err)
	}
	return nil
}

// UpsertGraph writes every vertex and edge of g.
func (r *Repository) UpsertGraph(ctx context.Context, g *reviewgraph.Graph) error {
	snap := g.Export()

	kinds := make(map[reviewgraph.Label]reviewgraph.Kind, len(snap.Vertices))
	var titles []string
	for _, v := range snap.Vertices {
		kinds[v.Label] = v.Kind
		if v.Kind == reviewgraph.KindItem {
			titles = append(titles, string(v.Label))
		}
	}
	if err := r.UpsertItems(ctx, titles); err != nil {
		return err
	}

	reviews := make([]domain.Review, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		reviewer, item := e.A, e.B
		if kinds[reviewer] == reviewgraph.KindItem {
			reviewer, item = item, reviewer
		}
		if kinds[reviewer] != reviewgraph.KindReviewer || kinds[item] != reviewgraph.KindItem {
			continue
		}
		reviews = append(reviews, domain.Review{Reviewer: string(reviewer), Item: string(item), Score: e.Weight})
	}
	return r.UpsertReviews(ctx, reviews)
}

// LoadReviews pages through every review scoring at least minScore.
func (r *Repository) LoadReviews(ctx context.Context, minScore int) ([]domain.Review, error) {
	var out []domain.Review
	for skip := 0; ; skip += loadPageSize {
		res, err := r.client.ExecuteRead(ctx, loadReviewsCypher, map[string]any{
			"minScore": minScore,
			"skip":     skip,
			"limit":    loadPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("load reviews: %w", err)
		}
		for _, record := range res.Records {
			out = append(out, domain.Review{
				Reviewer: toString(record["reviewer"]),
				Item:     toString(record["item"]),
				Score:    toInt(record["score"]),
			})
		}
		if len(res.Records) < loadPageSize {
			return out, nil
		}
	}
}

// LoadGraph rebuilds a review graph from the database. Items are added even
// when they have no qualifying review. Reviews whose reviewer or item label
// is already taken by the other kind are skipped, as in the CSV loader.
func (r *Repository) LoadGraph(ctx context.Context, minScore int) (*reviewgraph.Graph, error) {
	items, err := r.client.ExecuteRead(ctx, allItemsCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	reviews, err := r.LoadReviews(ctx, minScore)
	if err != nil {
		return nil, err
	}

	g := reviewgraph.New()
	err = g.Update(func(m *reviewgraph.Mutator) error {
		for _, record := range items.Records {
			if err := m.AddVertex(reviewgraph.Label(toString(record["title"])), reviewgraph.KindItem); err != nil {
				return err
			}
		}
		records := make([]dataset.Record, len(reviews))
		for i, rv := range reviews {
			records[i] = dataset.Record{Reviewer: reviewgraph.Label(rv.Reviewer), Item: reviewgraph.Label(rv.Item), Score: rv.Score}
		}
		_, err := dataset.ApplyRecords(m, records)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild graph: %w", err)
	}
	return g, nil
}

// ListItems returns catalogue entries whose title starts with the search
// prefix, case-insensitively, with their reviewer counts.
func (r *Repository) ListItems(ctx context.Context, opts ListItemsOptions) (domain.ItemListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	params := map[string]any{
		"search": strings.ToLower(strings.TrimSpace(opts.Search)),
		"skip":   offset,
		"limit":  limit,
	}

	res, err := r.client.ExecuteRead(ctx, listItemsCypher, params)
	if err != nil {
		return domain.ItemListResult{}, fmt.Errorf("list items query: %w", err)
	}
	var items []domain.ItemSummary
	for _, record := range res.Records {
		items = append(items, domain.ItemSummary{
			Title:     toString(record["title"]),
			Reviewers: toInt(record["reviewers"]),
		})
	}

	countRes, err := r.client.ExecuteRead(ctx, countItemsCypher, params)
	if err != nil {
		return domain.ItemListResult{}, fmt.Errorf("count items query: %w", err)
	}
	var total int64
	if len(countRes.Records) > 0 {
		total = int64(toInt(countRes.Records[0]["total"]))
	}

	return domain.ItemListResult{Items: items, Total: total}, nil
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toInt(val any) int {
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

var schemaCypher = []string{
	`CREATE CONSTRAINT reviewer_name IF NOT EXISTS FOR (r:Reviewer) REQUIRE r.name IS UNIQUE`,
	`CREATE CONSTRAINT item_title IF NOT EXISTS FOR (i:Item) REQUIRE i.title IS UNIQUE`,
}

const upsertReviewsCypher = `
UNWIND $rows AS row
MERGE (r:Reviewer {name: row.reviewer})
MERGE (i:Item {title: row.item})
MERGE (r)-[rv:REVIEWED]->(i)
SET rv.score = row.score
`

const upsertItemsCypher = `
UNWIND $titles AS title
MERGE (:Item {title: title})
`

const loadReviewsCypher = `
MATCH (r:Reviewer)-[rv:REVIEWED]->(i:Item)
WHERE rv.score >= $minScore AND rv.score <= 10
RETURN r.name AS reviewer, i.title AS item, rv.score AS score
ORDER BY reviewer, item
SKIP $skip LIMIT $limit
`

const allItemsCypher = `
MATCH (i:Item)
RETURN i.title AS title
ORDER BY title
`

const listItemsCypher = `
MATCH (i:Item)
WHERE $search = '' OR toLower(i.title) STARTS WITH $search
OPTIONAL MATCH (r:Reviewer)-[:REVIEWED]->(i)
WITH i, count(r) AS reviewers
RETURN i.title AS title, reviewers
ORDER BY title
SKIP $skip LIMIT $limit
`

const countItemsCypher = `
MATCH (i:Item)
WHERE $search = '' OR toLower(i.title) STARTS WITH $search
RETURN count(i) AS total
`
