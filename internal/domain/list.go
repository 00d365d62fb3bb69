package domain

// ItemSummary is one catalogue entry.
type ItemSummary struct {
	Title     string
	Reviewers int
}

// ItemListResult captures a page of catalogue entries and the number of
// matches before paging.
type ItemListResult struct {
	Items []ItemSummary
	Total int64
}

// Recommendation is a ranked candidate and its aggregate score.
type Recommendation struct {
	Item  string
	Score float64
}

// RecommendationList captures a page of the ranking and the number of
// ranked candidates.
type RecommendationList struct {
	Items []Recommendation
	Total int64
}
