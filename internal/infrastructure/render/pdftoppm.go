// Package render rasterises PDF pages with poppler's pdftoppm.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"CourtMonitor/internal/ports"
)

const pagePrefix = "page"

// Options configures the pdftoppm invocation.
type Options struct {
	Binary   string
	DPI      int
	MaxPages int
}

type runFunc func(ctx context.Context, name string, args []string) error

// Renderer implements ports.PageRenderer.
type Renderer struct {
	opts   Options
	logger *slog.Logger
	run    runFunc
}

var _ ports.PageRenderer = (*Renderer)(nil)

// New builds a renderer; zero options fall back to pdftoppm at 150 dpi.
func New(opts Options, logger *slog.Logger) *Renderer {
	if opts.Binary == "" {
		opts.Binary = "pdftoppm"
	}
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{opts: opts, logger: logger, run: execRun}
}

// Available reports whether the binary can be found on PATH.
func (r *Renderer) Available() bool {
	_, err := exec.LookPath(r.opts.Binary)
	return err == nil
}

// Render writes PNG pages into a scratch directory and returns them in page order.
// The scratch directory is removed before returning.
func (r *Renderer) Render(ctx context.Context, pdfPath string) ([]ports.RenderedPage, error) {
	dir, err := os.MkdirTemp("", "courtmonitor-pages-*")
	if err != nil {
		return nil, fmt.Errorf("create page dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"-png", "-r", strconv.Itoa(r.opts.DPI)}
	if r.opts.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(r.opts.MaxPages))
	}
	args = append(args, pdfPath, filepath.Join(dir, pagePrefix))

	r.logger.Debug("rendering pdf pages", "path", pdfPath, "dpi", r.opts.DPI, "max_pages", r.opts.MaxPages)
	if err := r.run(ctx, r.opts.Binary, args); err != nil {
		return nil, fmt.Errorf("render %s: %w", filepath.Base(pdfPath), err)
	}

	pages, err := collectPages(dir)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("pdf pages rendered", "path", pdfPath, "pages", len(pages))
	return pages, nil
}

// collectPages reads page-N.png files; pdftoppm zero-pads N depending on page count.
func collectPages(dir string) ([]ports.RenderedPage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read page dir: %w", err)
	}

	var pages []ports.RenderedPage
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".png" {
			continue
		}
		num, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSuffix(name, ".png"), pagePrefix+"-"))
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", num, err)
		}
		pages = append(pages, ports.RenderedPage{
			Number: num,
			Image:  ports.InlineImage{MIMEType: "image/png", Data: data},
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

func execRun(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
