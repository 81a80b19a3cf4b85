package ports

import (
	"context"
	"time"

	"CourtMonitor/internal/domain"
)

// SearchProvider opens sessions against the public record source.
type SearchProvider interface {
	Open(ctx context.Context) (SearchSession, error)
}

// SearchSession is a reusable connection to the record source.
type SearchSession interface {
	// FindLatest returns up to limit filings with attachments, newest first.
	// An empty result is not an error.
	FindLatest(ctx context.Context, query string, limit int) ([]domain.FilingInfo, error)
	Close() error
}

// InlineImage is binary image content sent alongside a prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// ExtractionRequest is a text prompt with optional images.
type ExtractionRequest struct {
	Prompt string
	Images []InlineImage
}

// ExtractionService invokes the external text-extraction / vision model.
type ExtractionService interface {
	Invoke(ctx context.Context, req ExtractionRequest) (string, error)
}

// RenderedPage is one rasterised PDF page.
type RenderedPage struct {
	Number int
	Image  InlineImage
}

// PageRenderer rasterises PDF pages for the vision fallback.
type PageRenderer interface {
	Render(ctx context.Context, pdfPath string) ([]RenderedPage, error)
}

// Notification is the payload handed to a Notifier after a new filing is analysed.
type Notification struct {
	Recipient        string
	Query            string
	Filing           domain.FilingInfo
	Narrative        string
	UnsubscribeToken string
}

// Notifier delivers update messages to subscribers.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SubscriptionRepository persists tracked queries.
type SubscriptionRepository interface {
	ListActive(ctx context.Context) ([]domain.Subscription, error)
	Create(ctx context.Context, query, email string) (domain.Subscription, error)
	UpdateLastSeen(ctx context.Context, id int64, key string) error
	Deactivate(ctx context.Context, token string) error
}

// ProgressSink receives a run's progress events in order.
type ProgressSink interface {
	Emit(event domain.ProgressEvent)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(domain.ProgressEvent)

// Emit calls f.
func (f SinkFunc) Emit(event domain.ProgressEvent) { f(event) }

// Discard drops every event.
var Discard ProgressSink = SinkFunc(func(domain.ProgressEvent) {})

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Fetcher downloads attachment links to local files; failed links are reported, not fatal.
type Fetcher interface {
	FetchAll(ctx context.Context, links []domain.AttachmentLink) ([]domain.DownloadedFile, []domain.LinkFailure)
}

// ArchiveExpander expands container downloads. track is called with every
// path written, before the write, so partially-written entries are cleaned up too.
type ArchiveExpander interface {
	Expand(file domain.DownloadedFile, track func(path string)) ([]domain.ExtractedFile, error)
}

// DocumentAnalyzer returns one analysis per file, in input order.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, files []domain.ExtractedFile) []domain.DocumentAnalysis
}

// CaseSynthesizer combines analysed filings into one narrative and never fails.
type CaseSynthesizer interface {
	Synthesize(ctx context.Context, filings []domain.ProcessedFiling) string
}
