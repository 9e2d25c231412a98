// Package dedup decides which listings of a batch are already known.
//
// Records are compared first by site-issued property code, then by the
// composite (title, street, posted date) key. The first record seen under a
// key wins; later ones are reported as duplicates and never replace it.
package dedup

import (
	"strings"

	"RealEstateCrawler/internal/domain"
)

// CompositeKey is the fallback identity of a listing without a property code.
type CompositeKey struct {
	Title      string
	Street     string
	PostedDate string
}

// KeyOf builds the composite key for a record.
func KeyOf(rec domain.ListingRecord) CompositeKey {
	return CompositeKey{
		Title:      normalizeKeyPart(rec.Title),
		Street:     normalizeKeyPart(rec.Street),
		PostedDate: rec.PostedDate(),
	}
}

// Set tracks the keys seen so far. The zero value is not usable; call New.
type Set struct {
	codes      map[string]struct{}
	composites map[CompositeKey]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{
		codes:      make(map[string]struct{}),
		composites: make(map[CompositeKey]struct{}),
	}
}

// Seed registers a stored row without judging it.
func (s *Set) Seed(propertyCode string, key CompositeKey) {
	if code := strings.TrimSpace(propertyCode); code != "" {
		s.codes[code] = struct{}{}
	}
	s.composites[key] = struct{}{}
}

// Observe classifies rec and remembers it when it is new.
func (s *Set) Observe(rec domain.ListingRecord) domain.SinkOutcome {
	code := strings.TrimSpace(rec.PropertyCode)
	if code != "" {
		if _, ok := s.codes[code]; ok {
			return domain.OutcomeDuplicateSkipped
		}
	}

	key := KeyOf(rec)
	if _, ok := s.composites[key]; ok {
		return domain.OutcomeDuplicateSkipped
	}

	if code != "" {
		s.codes[code] = struct{}{}
	}
	s.composites[key] = struct{}{}
	return domain.OutcomeInserted
}

func normalizeKeyPart(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}
