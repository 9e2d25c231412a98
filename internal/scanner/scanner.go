package scanner

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"RealEstateCrawler/internal/domain"
)

// Strategy knows one site's markup: how to page through its index and how to
// turn a listing fragment (and optionally its detail page) into fields.
type Strategy interface {
	Name() string
	PageURL(base string, page int) (string, error)
	Fragments(doc *goquery.Document) []*goquery.Selection
	ExtractListing(fragment *goquery.Selection, target domain.CrawlTarget, now time.Time) (domain.ListingRecord, error)
	ExtractDetail(doc *goquery.Document) domain.Detail
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
