package ports

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"RealEstateCrawler/internal/domain"
)

// PageFetcher retrieves and parses one listing-index or detail page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// ListingSink persists accepted records, deduplicating against what is stored.
type ListingSink interface {
	Accept(ctx context.Context, record domain.ListingRecord) (domain.SinkOutcome, error)
	AcceptBatch(ctx context.Context, records []domain.ListingRecord) ([]domain.SinkOutcome, error)
}

// Scheduler controls when crawl runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
