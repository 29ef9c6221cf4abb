package paper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"paperstore/pkg/errors"
)

const (
	epochDate    = "1970-01-01"
	epochInstant = "1970-01-01T00:00:00Z"
)

// StringList tolerates the loose typing of the input feed: a JSON array,
// a bare scalar, or an absent field all decode cleanly. A scalar becomes a
// single-element list.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch t := v.(type) {
	case nil:
		*l = nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", e))
			}
		}
		*l = out
	case string:
		*l = StringList{t}
	default:
		*l = StringList{fmt.Sprintf("%v", t)}
	}

	return nil
}

// RawRecord is one record of the external JSON feed. Every field is
// optional; Normalize decides what is recoverable.
type RawRecord struct {
	ArxivID    string     `json:"arxiv_id"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Abstract   string     `json:"abstract"`
	Authors    StringList `json:"authors"`
	Categories StringList `json:"categories"`
	Published  string     `json:"published"`
}

// Normalize converts a raw feed record into a canonical Paper.
//
// The only unrecoverable failure is a missing identifier, reported as a
// MissingIdentifier error so the ingestion pipeline can skip and count the
// record. Everything else falls back to a deterministic default.
func Normalize(raw RawRecord) (Paper, error) {
	id := strings.TrimSpace(raw.ArxivID)
	if id == "" {
		id = strings.TrimSpace(raw.ID)
	}
	if id == "" {
		return Paper{}, errors.NewMissingIdentifierError()
	}

	date, instant := normalizePublished(raw.Published)

	abstract := strings.TrimSpace(raw.Abstract)

	return Paper{
		ID:            id,
		Title:         strings.TrimSpace(raw.Title),
		Abstract:      abstract,
		Authors:       []string(raw.Authors),
		Categories:    []string(raw.Categories),
		Keywords:      ExtractKeywords(abstract, MaxKeywords),
		PublishedDate: date,
		Published:     instant,
	}, nil
}

// normalizePublished splits a published value into its calendar date and a
// UTC ISO-8601 instant. A date-only value is treated as midnight UTC.
// Unparseable input degrades to the first ten characters plus the raw
// string; absent input defaults to the epoch.
func normalizePublished(raw string) (date, instant string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return epochDate, epochInstant
	}

	if strings.Contains(s, "T") {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			// Timestamps without a zone designator still count as UTC.
			t, err = time.Parse("2006-01-02T15:04:05", s)
		}
		if err == nil {
			t = t.UTC()
			return t.Format("2006-01-02"), t.Format(time.RFC3339)
		}
	} else if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), t.Format("2006-01-02") + "T00:00:00Z"
	}

	if len(s) > 10 {
		return s[:10], s
	}
	return s, s
}
