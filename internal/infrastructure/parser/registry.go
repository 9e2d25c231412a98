package parser

import "RealEstateCrawler/internal/scanner"

// DefaultRegistry returns a registry holding every built-in site strategy.
func DefaultRegistry() *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.Register(NewMogiStrategy())
	return reg
}
