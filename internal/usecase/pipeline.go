package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/locale"
	"CourtMonitor/internal/metrics"
	"CourtMonitor/internal/ports"
)

const defaultCaseLimit = 2

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Search      ports.SearchProvider
	Fetcher     ports.Fetcher
	Expander    ports.ArchiveExpander
	Analyzer    ports.DocumentAnalyzer
	Synthesizer ports.CaseSynthesizer
	Catalog     locale.Catalog
	// DefaultLimit is used when a query run asks for zero or fewer filings.
	DefaultLimit int
	Logger       *slog.Logger
}

// Pipeline runs search, download, expansion, analysis and synthesis for a set of filings.
type Pipeline struct {
	search       ports.SearchProvider
	fetcher      ports.Fetcher
	expander     ports.ArchiveExpander
	analyzer     ports.DocumentAnalyzer
	synthesizer  ports.CaseSynthesizer
	catalog      locale.Catalog
	defaultLimit int
	logger       *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := deps.DefaultLimit
	if limit <= 0 {
		limit = defaultCaseLimit
	}
	catalog := deps.Catalog
	if catalog.Code == "" {
		catalog = locale.For("")
	}
	return &Pipeline{
		search:       deps.Search,
		fetcher:      deps.Fetcher,
		expander:     deps.Expander,
		analyzer:     deps.Analyzer,
		synthesizer:  deps.Synthesizer,
		catalog:      catalog,
		defaultLimit: limit,
		logger:       logger,
	}
}

// Run processes already-discovered filings. It fails only when filings is empty.
func (p *Pipeline) Run(ctx context.Context, filings []domain.FilingInfo, sink ports.ProgressSink) (result domain.PipelineResult, err error) {
	sink = orDiscard(sink)
	defer p.observe("direct", time.Now(), &err)

	cleanup := newCleanupList(p.logger)
	defer cleanup.Release()

	return p.process(ctx, filings, sink, cleanup)
}

// RunQuery opens a search session, finds the latest filings for query and
// processes them. The session is closed before returning.
func (p *Pipeline) RunQuery(ctx context.Context, query string, limit int, sink ports.ProgressSink) (result domain.PipelineResult, err error) {
	sink = orDiscard(sink)
	defer p.observe("query", time.Now(), &err)
	if p.search == nil {
		return p.abort(sink, errors.New("no search provider configured"))
	}

	session, err := p.search.Open(ctx)
	if err != nil {
		return p.abort(sink, fmt.Errorf("open search session: %w", err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			p.logger.Warn("close search session", "error", cerr)
		}
	}()

	return p.searchAndProcess(ctx, session, query, limit, sink)
}

// RunQueryWithSession is RunQuery over a caller-owned session, left open on return.
func (p *Pipeline) RunQueryWithSession(ctx context.Context, session ports.SearchSession, query string, limit int, sink ports.ProgressSink) (result domain.PipelineResult, err error) {
	sink = orDiscard(sink)
	defer p.observe("session", time.Now(), &err)
	return p.searchAndProcess(ctx, session, query, limit, sink)
}

func (p *Pipeline) searchAndProcess(ctx context.Context, session ports.SearchSession, query string, limit int, sink ports.ProgressSink) (domain.PipelineResult, error) {
	cleanup := newCleanupList(p.logger)
	defer cleanup.Release()

	query = strings.TrimSpace(query)
	if query == "" {
		return p.abort(sink, domain.ErrEmptyQuery)
	}
	if limit <= 0 {
		limit = p.defaultLimit
	}

	sink.Emit(domain.ProgressEvent{Step: domain.StepScraping, Progress: domain.At(10), Message: p.catalog.Scraping})

	filings, err := session.FindLatest(ctx, query, limit)
	if err != nil {
		return p.abort(sink, fmt.Errorf("search %q: %w", query, err))
	}
	if len(filings) == 0 {
		return p.abort(sink, domain.ErrNoFilings)
	}

	p.logger.Info("filings found", "query", query, "count", len(filings))
	return p.process(ctx, filings, sink, cleanup)
}

func (p *Pipeline) process(ctx context.Context, filings []domain.FilingInfo, sink ports.ProgressSink, cleanup *cleanupList) (domain.PipelineResult, error) {
	if len(filings) == 0 {
		return p.abort(sink, domain.ErrNoCases)
	}

	total := len(filings)
	sink.Emit(domain.ProgressEvent{
		Step:     domain.StepProcessingSetup,
		Progress: domain.At(20),
		Message:  locale.Format(p.catalog.FoundFilings, total),
	})

	processed := make([]domain.ProcessedFiling, 0, total)
	for i, filing := range filings {
		if err := ctx.Err(); err != nil {
			return p.abort(sink, fmt.Errorf("run interrupted before filing %d: %w", i+1, err))
		}
		processed = append(processed, p.processFiling(ctx, i, total, filing, sink, cleanup))
	}

	sink.Emit(domain.ProgressEvent{Step: domain.StepComparing, Progress: domain.At(85), Message: p.catalog.Comparing})
	result := domain.PipelineResult{
		Filings:   processed,
		Narrative: p.synthesizer.Synthesize(ctx, processed),
	}

	sink.Emit(domain.ProgressEvent{
		Step:     domain.StepComplete,
		Progress: domain.At(100),
		Message:  p.catalog.Complete,
		Data:     result.Redact(),
	})
	return result, nil
}

// processFiling handles one filing within its share of the 25..75 band.
func (p *Pipeline) processFiling(ctx context.Context, i, total int, filing domain.FilingInfo, sink ports.ProgressSink, cleanup *cleanupList) domain.ProcessedFiling {
	span := 50 / float64(total)
	base := 25 + float64(i)*span
	n := i + 1

	sink.Emit(domain.ProgressEvent{
		Step:     domain.StepProcessingCase,
		Progress: domain.At(base),
		Message:  locale.Format(p.catalog.ProcessingCase, n, total, filing.Title),
	})

	sink.Emit(domain.ProgressEvent{Step: domain.StepDownloading, Progress: domain.At(base), Message: locale.Format(p.catalog.Downloading, n)})
	downloaded, failedLinks := p.fetcher.FetchAll(ctx, filing.Attachments)
	for _, f := range downloaded {
		cleanup.Add(f.Path)
	}

	sink.Emit(domain.ProgressEvent{Step: domain.StepUnzipping, Progress: domain.At(base + span*0.25), Message: locale.Format(p.catalog.Unzipping, n)})
	var files []domain.ExtractedFile
	var unreadable []domain.DocumentAnalysis
	for _, d := range downloaded {
		expanded, err := p.expander.Expand(d, cleanup.Add)
		if err != nil {
			p.logger.Warn("expand archive", "case_number", filing.CaseNumber, "path", d.Path, "error", err)
			unreadable = append(unreadable, domain.Fail(d.AsExtracted(), err.Error()))
		}
		files = append(files, expanded...)
	}

	pf := domain.ProcessedFiling{Filing: filing, Files: downloaded, FailedLinks: failedLinks, Analyses: []domain.DocumentAnalysis{}}
	if len(files) == 0 {
		pf.Analyses = append(pf.Analyses, unreadable...)
		if len(unreadable) == 0 {
			p.logger.Warn("no documents to analyse", "case_number", filing.CaseNumber, "title", filing.Title)
			pf.Note = p.catalog.NoDocumentsNote
		}
		return pf
	}

	sink.Emit(domain.ProgressEvent{
		Step:     domain.StepAnalyzing,
		Progress: domain.At(base + span*0.5),
		Message:  locale.Format(p.catalog.Analyzing, len(files), n),
	})
	pf.Analyses = append(p.analyzer.Analyze(ctx, files), unreadable...)
	return pf
}

// abort emits the single terminal error event of a run and returns err.
func (p *Pipeline) abort(sink ports.ProgressSink, err error) (domain.PipelineResult, error) {
	p.logger.Error("pipeline run failed", "error", err)
	sink.Emit(domain.ProgressEvent{Step: domain.StepError, Progress: domain.At(100), Message: p.errorMessage(err)})
	return domain.PipelineResult{}, err
}

func (p *Pipeline) errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoFilings):
		return p.catalog.NoFilings
	case errors.Is(err, domain.ErrNoCases):
		return p.catalog.NoCases
	default:
		return fmt.Sprintf("%s (%v)", p.catalog.GenericError, err)
	}
}

func (p *Pipeline) observe(trigger string, started time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	metrics.RecordRun(trigger, status, time.Since(started).Seconds())
}

func orDiscard(sink ports.ProgressSink) ports.ProgressSink {
	if sink == nil {
		return ports.Discard
	}
	return sink
}
