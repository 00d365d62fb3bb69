package domain

// Review is a reviewer's score for one item.
type Review struct {
	Reviewer string
	Item     string
	Score    int
}

// PathView is one bridging path between two items.
type PathView struct {
	Vertices      []string
	Length        int
	Weight        int
	AverageWeight float64
}

// PairExplanation lists the evidence behind a pair's recommendation value.
type PairExplanation struct {
	Source string
	Target string
	Value  float64
	Paths  []PathView
	// Truncated is set when enumeration stopped at the path limit.
	Truncated bool
}
