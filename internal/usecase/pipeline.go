package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"RealEstateCrawler/internal/domain"
	"RealEstateCrawler/internal/ports"
)

// persistTimeout bounds storing a partial batch after the run was cancelled.
const persistTimeout = 30 * time.Second

// PipelineDeps wires the sweep driver and the sink into the crawl workflow.
type PipelineDeps struct {
	Paginator *Paginator
	Sink      ports.ListingSink
	Targets   []domain.CrawlTarget
	Location  *time.Location
	Logger    *slog.Logger
}

// RunReport describes one crawl run.
type RunReport struct {
	Sweeps     []SweepResult
	Inserted   int
	Duplicates int
}

// Collected counts records that survived extraction and filtering.
func (r RunReport) Collected() int {
	total := 0
	for _, s := range r.Sweeps {
		total += len(s.Records)
	}
	return total
}

// Pipeline implements the crawl workflow: sweep every target in order, then
// hand the whole batch to the sink.
type Pipeline struct {
	paginator *Paginator
	sink      ports.ListingSink
	targets   []domain.CrawlTarget
	location  *time.Location
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		paginator: deps.Paginator,
		sink:      deps.Sink,
		targets:   deps.Targets,
		location:  loc,
		logger:    logger,
	}
}

// Run sweeps each target sequentially and persists the collected batch. An
// unreachable target does not stop the others; its error is returned after
// the batch is stored. Any other sweep error, cancellation included, ends the
// run early but still stores what earlier sweeps collected.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (RunReport, error) {
	var report RunReport
	if p.paginator == nil {
		return report, fmt.Errorf("pipeline has no paginator")
	}

	now = now.In(p.location)
	p.logger.Info("crawl started", "targets", len(p.targets), "now", now.Format(time.DateTime))

	var (
		batch []domain.ListingRecord
		errs  []error
		fatal bool
	)
	for _, target := range p.targets {
		result, err := p.paginator.Sweep(ctx, target, now)
		report.Sweeps = append(report.Sweeps, result)
		batch = append(batch, result.Records...)
		if err != nil {
			if !errors.Is(err, ErrTargetUnreachable) {
				p.logger.Warn("crawl aborted", "target", target.Name, "collected", len(batch), "error", err)
				errs = append(errs, fmt.Errorf("sweep %s: %w", target.Name, err))
				fatal = true
				break
			}
			p.logger.Warn("target unreachable", "target", target.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		p.logger.Info("sweep finished",
			"target", target.Name,
			"pages", result.Pages,
			"records", len(result.Records),
			"skipped", result.Skipped,
			"rejected", result.Rejected)
	}

	if len(batch) > 0 && p.sink != nil {
		persistCtx := ctx
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			persistCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
			defer cancel()
		}
		outcomes, err := p.sink.AcceptBatch(persistCtx, batch)
		if err != nil {
			return report, errors.Join(append(errs, fmt.Errorf("persist batch: %w", err))...)
		}
		for _, outcome := range outcomes {
			switch outcome {
			case domain.OutcomeInserted:
				report.Inserted++
			case domain.OutcomeDuplicateSkipped:
				report.Duplicates++
			}
		}
	}

	msg := "crawl finished"
	if fatal {
		msg = "partial crawl stored"
	}
	p.logger.Info(msg,
		"collected", len(batch),
		"inserted", report.Inserted,
		"duplicates", report.Duplicates)

	return report, errors.Join(errs...)
}
