package analysis

import (
	"context"
	"log/slog"
	"strings"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/locale"
	"CourtMonitor/internal/ports"
)

// Synthesizer combines per-document summaries into one narrative.
type Synthesizer struct {
	service ports.ExtractionService
	catalog locale.Catalog
	logger  *slog.Logger
}

// NewSynthesizer wires the extraction service and locale strings.
func NewSynthesizer(service ports.ExtractionService, catalog locale.Catalog, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{service: service, catalog: catalog, logger: logger}
}

// Synthesize never fails: any internal problem yields a fallback message.
// Filings are used in the order received.
func (s *Synthesizer) Synthesize(ctx context.Context, filings []domain.ProcessedFiling) (narrative string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("synthesis aborted", "panic", r)
			narrative = s.catalog.SynthesisFailed
		}
	}()

	var prompt string
	switch len(filings) {
	case 0:
		return s.catalog.NoData
	case 1:
		summaries := filings[0].SuccessfulSummaries()
		if len(summaries) == 0 {
			return s.catalog.NoSuccessfulAnalysis
		}
		prompt = singleFilingPrompt(s.catalog.Language, filings[0].Filing, summaries)
	default:
		blocks := make([]string, 0, len(filings))
		for i, pf := range filings {
			blocks = append(blocks, filingBlock(i, pf, pf.SuccessfulSummaries(), s.catalog.NoSuccessfulAnalysis))
		}
		prompt = multiFilingPrompt(s.catalog.Language, blocks)
	}

	out, err := s.service.Invoke(ctx, ports.ExtractionRequest{Prompt: prompt})
	if err != nil {
		s.logger.Error("synthesis request failed", "filings", len(filings), "error", err)
		return s.catalog.SynthesisFailed
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return s.catalog.SynthesisFailed
	}
	return out
}
