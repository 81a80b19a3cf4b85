// Package analysis turns extracted files into structured per-document results
// and synthesises narratives across documents and filings.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/extract"
	"CourtMonitor/internal/metrics"
	"CourtMonitor/internal/ports"
)

const defaultMaxPromptChars = 25000

// TextExtractor reads the native text layer of a file.
type TextExtractor interface {
	Text(ctx context.Context, path string) (string, error)
}

// Options tunes an Analyzer.
type Options struct {
	// Language names the language summaries are written in.
	Language string
	// MaxPromptChars bounds the document text sent to the service.
	MaxPromptChars int
	// MaxParallel caps concurrent documents per call; 0 means one goroutine per file.
	MaxParallel int
}

// Analyzer extracts structured fields from documents, one service call per file.
type Analyzer struct {
	extractor TextExtractor
	renderer  ports.PageRenderer
	service   ports.ExtractionService
	opts      Options
	logger    *slog.Logger
}

// NewAnalyzer wires extraction collaborators. renderer may be nil, which
// disables the vision fallback for image-only PDFs.
func NewAnalyzer(extractor TextExtractor, renderer ports.PageRenderer, service ports.ExtractionService, opts Options, logger *slog.Logger) *Analyzer {
	if opts.MaxPromptChars <= 0 {
		opts.MaxPromptChars = defaultMaxPromptChars
	}
	if opts.Language == "" {
		opts.Language = "Croatian"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		extractor: extractor,
		renderer:  renderer,
		service:   service,
		opts:      opts,
		logger:    logger,
	}
}

// Analyze processes all files concurrently and returns one record per file
// in input order. A failing file never affects its siblings.
func (a *Analyzer) Analyze(ctx context.Context, files []domain.ExtractedFile) []domain.DocumentAnalysis {
	results := make([]domain.DocumentAnalysis, len(files))

	var g errgroup.Group
	if a.opts.MaxParallel > 0 {
		g.SetLimit(a.opts.MaxParallel)
	}
	for i, file := range files {
		g.Go(func() error {
			results[i] = a.analyzeOne(ctx, file)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Analyzer) analyzeOne(ctx context.Context, file domain.ExtractedFile) (out domain.DocumentAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.Fail(file, fmt.Sprintf("analysis aborted: %v", r))
		}
		status := "success"
		if !out.Succeeded() {
			status = "failed"
			a.logger.Warn("document analysis failed", "path", file.Path, "text", file.Text, "error", out.Error)
		}
		metrics.RecordDocument(status)
	}()

	text := a.nativeText(ctx, file)
	if text == "" && extract.IsPDF(file.Path) {
		text = a.visionText(ctx, file)
	}
	if text == "" {
		return domain.Fail(file, "could not extract text from file (unreadable, corrupt or image-only)")
	}

	prompt := documentPrompt(a.opts.Language, truncateRunes(text, a.opts.MaxPromptChars))
	raw, err := a.service.Invoke(ctx, ports.ExtractionRequest{Prompt: prompt})
	if err != nil {
		return domain.Fail(file, fmt.Sprintf("extraction service: %v", err))
	}

	result, err := parseDocumentResult(raw)
	if err != nil {
		return domain.Fail(file, err.Error())
	}

	a.logger.Debug("document analysed", "path", file.Path, "case_number", result.CaseNumber)
	return domain.Succeed(file, result)
}

func (a *Analyzer) nativeText(ctx context.Context, file domain.ExtractedFile) string {
	if a.extractor == nil {
		return ""
	}
	text, err := a.extractor.Text(ctx, file.Path)
	if err != nil {
		a.logger.Warn("native text extraction failed", "path", file.Path, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// visionText renders each page and transcribes it with the service,
// concatenating pages in order. Pages that fail are skipped.
func (a *Analyzer) visionText(ctx context.Context, file domain.ExtractedFile) string {
	if a.renderer == nil {
		return ""
	}
	pages, err := a.renderer.Render(ctx, file.Path)
	if err != nil {
		a.logger.Warn("page rendering failed", "path", file.Path, "error", err)
		return ""
	}

	a.logger.Debug("falling back to vision extraction", "path", file.Path, "pages", len(pages))

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		out, err := a.service.Invoke(ctx, ports.ExtractionRequest{
			Prompt: pageTextInstruction,
			Images: []ports.InlineImage{page.Image},
		})
		if err != nil {
			a.logger.Warn("page transcription failed", "path", file.Path, "page", page.Number, "error", err)
			continue
		}
		if text := strings.TrimSpace(out); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
