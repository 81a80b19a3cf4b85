// Package fetch downloads filing attachments into the shared temporary directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"CourtMonitor/internal/domain"
)

const maxNameLength = 40

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Options configures a Fetcher.
type Options struct {
	Dir               string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
}

// Fetcher stores attachment links on local disk.
type Fetcher struct {
	client    *http.Client
	dir       string
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time
}

// New wires an HTTP client; a nil client gets one with opts.Timeout.
func New(opts Options, client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Fetcher{
		client:    client,
		dir:       opts.Dir,
		userAgent: opts.UserAgent,
		limiter:   limiter,
		logger:    logger,
		now:       time.Now,
	}
}

// Dir returns the directory downloads are written to.
func (f *Fetcher) Dir() string {
	return f.dir
}

// FetchAll downloads every link in order. A failed link is logged and
// reported in failed; it never aborts the remaining links.
func (f *Fetcher) FetchAll(ctx context.Context, links []domain.AttachmentLink) (downloaded []domain.DownloadedFile, failed []domain.LinkFailure) {
	downloaded = make([]domain.DownloadedFile, 0, len(links))
	for _, link := range links {
		file, err := f.Fetch(ctx, link)
		if err != nil {
			f.logger.Warn("download failed", "url", link.URL, "text", link.Text, "error", err)
			failed = append(failed, domain.LinkFailure{Link: link, Error: err.Error()})
			continue
		}
		downloaded = append(downloaded, file)
	}
	return downloaded, failed
}

// Fetch downloads a single link. Partially written files are removed before
// an error is returned.
func (f *Fetcher) Fetch(ctx context.Context, link domain.AttachmentLink) (domain.DownloadedFile, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return domain.DownloadedFile{}, fmt.Errorf("create download dir: %w", err)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return domain.DownloadedFile{}, fmt.Errorf("wait for download slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.URL, nil)
	if err != nil {
		return domain.DownloadedFile{}, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.DownloadedFile{}, fmt.Errorf("request attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.DownloadedFile{}, fmt.Errorf("attachment returned %s", resp.Status)
	}

	ext := ResolveExtension(resp.Header, link.Text)
	f.logger.Debug("resolved extension",
		"url", link.URL,
		"content_type", resp.Header.Get("Content-Type"),
		"content_disposition", resp.Header.Get("Content-Disposition"),
		"extension", ext)

	target := filepath.Join(f.dir, f.baseName(link.Text)+ext)
	if err := writeFile(target, resp.Body); err != nil {
		return domain.DownloadedFile{}, err
	}

	f.logger.Debug("saved attachment", "path", target)
	return domain.DownloadedFile{Path: target, URL: link.URL, Text: link.Text}, nil
}

// baseName combines a timestamp, a random suffix and the sanitised display text.
func (f *Fetcher) baseName(text string) string {
	if text == "" {
		text = "document"
	}
	safe := unsafeName.ReplaceAllString(text, "_")
	if len(safe) > maxNameLength {
		safe = safe[:maxNameLength]
	}
	return fmt.Sprintf("%d_%s_%s", f.now().UnixMilli(), uuid.NewString()[:8], safe)
}

func writeFile(target string, body io.Reader) error {
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("close %s: %w", target, err)
	}
	return nil
}
