package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"RealEstateCrawler/internal/domain"
	"RealEstateCrawler/internal/filter"
	"RealEstateCrawler/internal/ports"
	"RealEstateCrawler/internal/scanner"
)

// ErrTargetUnreachable is returned when the first index page of a target
// cannot be fetched.
var ErrTargetUnreachable = errors.New("crawl target unreachable")

// PaginatorOptions tunes a sweep. MaxPages 0 means no cap.
type PaginatorOptions struct {
	MaxPages     int
	FetchDetails bool
}

// SweepResult summarises one target's pagination.
type SweepResult struct {
	Target   domain.CrawlTarget
	Pages    int
	Records  []domain.ListingRecord
	Skipped  int
	Rejected int
	Capped   bool
}

// Paginator walks index pages 1, 2, 3... of a target until a page fails to
// load or yields no listings.
type Paginator struct {
	fetcher  ports.PageFetcher
	strategy scanner.Strategy
	opts     PaginatorOptions
	logger   *slog.Logger
}

// NewPaginator wires a fetcher with the site strategy.
func NewPaginator(fetcher ports.PageFetcher, strategy scanner.Strategy, opts PaginatorOptions, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Paginator{
		fetcher:  fetcher,
		strategy: strategy,
		opts:     opts,
		logger:   logger,
	}
}

// Sweep collects every plausible listing of target. Relative posted dates are
// resolved against now.
func (p *Paginator) Sweep(ctx context.Context, target domain.CrawlTarget, now time.Time) (SweepResult, error) {
	result := SweepResult{Target: target}
	if p.fetcher == nil || p.strategy == nil {
		return result, fmt.Errorf("paginator is not configured")
	}

	log := p.logger.With("target", target.Name)

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if p.opts.MaxPages > 0 && page > p.opts.MaxPages {
			result.Capped = true
			log.Warn("page cap reached", "max_pages", p.opts.MaxPages)
			return result, nil
		}

		pageURL, err := p.strategy.PageURL(target.URL, page)
		if err != nil {
			return result, fmt.Errorf("target %s: %w", target.Name, err)
		}

		doc, err := p.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			if page == 1 {
				return result, fmt.Errorf("%w: %s: %w", ErrTargetUnreachable, target.Name, err)
			}
			log.Warn("index fetch failed, ending sweep", "page", page, "error", err)
			return result, nil
		}

		fragments := p.strategy.Fragments(doc)
		if len(fragments) == 0 {
			log.Debug("empty index page, sweep done", "page", page)
			return result, nil
		}
		result.Pages++

		for i, fragment := range fragments {
			rec, err := p.strategy.ExtractListing(fragment, target, now)
			if err != nil {
				result.Skipped++
				if extErr, ok := domain.AsExtractionError(err); ok {
					log.Info("skip listing", "page", page, "index", i, "reason", string(extErr.Kind), "field", extErr.Field)
				} else {
					log.Info("skip listing", "page", page, "index", i, "error", err)
				}
				continue
			}

			if reason, ok := filter.Check(rec); !ok {
				result.Rejected++
				log.Info("skip listing", "page", page, "index", i, "reason", "implausible:"+string(reason), "title", rec.Title)
				continue
			}

			if p.opts.FetchDetails && rec.DetailURL != "" {
				rec = p.enrich(ctx, log, rec)
			}

			result.Records = append(result.Records, rec)
		}

		log.Info("index page processed", "page", page, "listings", len(fragments), "kept", len(result.Records))
	}
}

func (p *Paginator) enrich(ctx context.Context, log *slog.Logger, rec domain.ListingRecord) domain.ListingRecord {
	doc, err := p.fetcher.Fetch(ctx, rec.DetailURL)
	if err != nil {
		log.Warn("detail fetch failed", "url", rec.DetailURL, "error", err)
		return rec
	}
	return rec.WithDetail(p.strategy.ExtractDetail(doc))
}
