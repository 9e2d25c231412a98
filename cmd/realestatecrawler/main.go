package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"RealEstateCrawler/internal/app"
	"RealEstateCrawler/internal/config"
	"RealEstateCrawler/internal/logging"
)

const usage = `usage:
  realestatecrawler crawl [-buy URL] [-rent URL]
  realestatecrawler serve`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	switch os.Args[1] {
	case "crawl":
		fs := flag.NewFlagSet("crawl", flag.ExitOnError)
		buyURL := fs.String("buy", "", "index URL of sale listings")
		rentURL := fs.String("rent", "", "index URL of rental listings")
		_ = fs.Parse(os.Args[2:])

		if *buyURL != "" || *rentURL != "" {
			cfg.Crawler.Targets = cliTargets(*buyURL, *rentURL)
		}

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("init failed", "error", err)
			os.Exit(1)
		}
		defer application.Close()

		report, err := application.RunCrawl(ctx)
		if err != nil {
			logger.Error("crawl failed", "error", err)
			_ = application.Close()
			os.Exit(1)
		}
		logger.Info("crawl complete",
			"collected", report.Collected(),
			"inserted", report.Inserted,
			"duplicates", report.Duplicates)

	case "serve":
		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			logger.Error("init failed", "error", err)
			os.Exit(1)
		}
		defer application.Close()

		if err := application.Serve(ctx); err != nil {
			logger.Error("application stopped", "error", err)
			_ = application.Close()
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func cliTargets(buyURL, rentURL string) []config.TargetConfig {
	selling, renting := true, false
	var targets []config.TargetConfig
	if buyURL != "" {
		targets = append(targets, config.TargetConfig{Name: "buy", URL: buyURL, Selling: &selling})
	}
	if rentURL != "" {
		targets = append(targets, config.TargetConfig{Name: "rent", URL: rentURL, Selling: &renting})
	}
	return targets
}
