package scanner

import (
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"RealEstateCrawler/internal/domain"
)

type stubStrategy struct{ name string }

func (s stubStrategy) Name() string                                  { return s.name }
func (s stubStrategy) PageURL(base string, page int) (string, error) { return base, nil }
func (s stubStrategy) Fragments(*goquery.Document) []*goquery.Selection {
	return nil
}
func (s stubStrategy) ExtractListing(*goquery.Selection, domain.CrawlTarget, time.Time) (domain.ListingRecord, error) {
	return domain.ListingRecord{}, nil
}
func (s stubStrategy) ExtractDetail(*goquery.Document) domain.Detail { return domain.Detail{} }

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubStrategy{name: "mogi"})

	got, err := reg.Resolve("mogi")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got.Name() != "mogi" {
		t.Fatalf("unexpected strategy: %s", got.Name())
	}

	if _, err := reg.Resolve("batdongsan"); err == nil {
		t.Fatal("expected error for unregistered strategy")
	}
}

func TestRegistryZeroValue(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(stubStrategy{name: "mogi"})
	if _, err := reg.Resolve("mogi"); err != nil {
		t.Fatalf("Resolve on zero-value registry: %v", err)
	}
}
