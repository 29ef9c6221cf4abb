// Package paper holds the canonical paper model and the pure functions that
// project it into the denormalized item set persisted by the store layer.
package paper

// Paper is the canonical, normalized form of one bibliographic record.
// It is built once by Normalize and never mutated; only its projections
// (see Denormalize) are persisted.
type Paper struct {
	ID            string
	Title         string
	Abstract      string
	Authors       []string
	Categories    []string
	Keywords      []string
	PublishedDate string // calendar date, YYYY-MM-DD
	Published     string // full ISO-8601 instant, UTC
}
