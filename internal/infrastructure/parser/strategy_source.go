package parser

import (
	"context"
	"fmt"
	"log/slog"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/ports"
	"CourtMonitor/internal/scanner"
)

// StrategySource implements SearchProvider via a registered scanner strategy.
type StrategySource struct {
	registry *scanner.Registry
	name     string
	logger   *slog.Logger
}

var _ ports.SearchProvider = (*StrategySource)(nil)

// NewStrategySource binds the scanner registered under name.
func NewStrategySource(reg *scanner.Registry, name string, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		name:     name,
		logger:   log,
	}
}

// Open resolves the configured scanner and opens a session on it.
func (s *StrategySource) Open(ctx context.Context) (ports.SearchSession, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	strategy, err := s.registry.Resolve(s.name)
	if err != nil {
		return nil, err
	}

	s.debug("open search session", "scanner", s.name)
	session, err := strategy.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s session: %w", s.name, err)
	}
	return &strategySession{session: session, name: s.name, debug: s.debug}, nil
}

type strategySession struct {
	session scanner.Session
	name    string
	debug   func(msg string, args ...interface{})
}

// FindLatest keeps, in source order, the first limit filings that carry at least one attachment.
func (s *strategySession) FindLatest(ctx context.Context, query string, limit int) ([]domain.FilingInfo, error) {
	results, err := s.session.Search(ctx, scanner.Request{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.name, err)
	}

	filings := make([]domain.FilingInfo, 0, limit)
	for _, f := range results {
		if len(f.Attachments) == 0 {
			continue
		}
		filings = append(filings, f)
		if limit > 0 && len(filings) == limit {
			break
		}
	}
	s.debug("search done", "scanner", s.name, "query", query, "parsed", len(results), "with_documents", len(filings))
	return filings, nil
}

func (s *strategySession) Close() error {
	return s.session.Close()
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
