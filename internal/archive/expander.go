// Package archive expands downloaded containers next to the container file.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"CourtMonitor/internal/domain"
)

// ErrEntryTooLarge is returned when an entry exceeds the configured size cap.
var ErrEntryTooLarge = errors.New("archive entry exceeds size limit")

// Expander unpacks zip containers into flat file lists.
type Expander struct {
	maxEntryBytes int64
	logger        *slog.Logger
}

// New builds an Expander; maxEntryBytes <= 0 disables the per-entry cap.
func New(maxEntryBytes int64, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{maxEntryBytes: maxEntryBytes, logger: logger}
}

// IsContainer reports whether the path has a container extension.
func IsContainer(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".zip")
}

// Expand returns the files contained in file, or file itself when it is not
// a container. track is called with every path before it is written, so a
// failure halfway through still leaves each written entry accounted for.
// On error the entries expanded so far are returned alongside it.
func (e *Expander) Expand(file domain.DownloadedFile, track func(string)) ([]domain.ExtractedFile, error) {
	if !IsContainer(file.Path) {
		return []domain.ExtractedFile{file.AsExtracted()}, nil
	}

	reader, err := zip.OpenReader(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", file.Path, err)
	}
	defer reader.Close()

	dir := filepath.Dir(file.Path)
	stem := strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path))

	var extracted []domain.ExtractedFile
	for i, entry := range reader.File {
		if entry.FileInfo().IsDir() || strings.HasSuffix(entry.Name, "/") {
			continue
		}

		target := filepath.Join(dir, entryFileName(stem, i, entry.Name))
		track(target)

		if err := e.writeEntry(entry, target); err != nil {
			return extracted, fmt.Errorf("extract %s from %s: %w", entry.Name, file.Path, err)
		}

		extracted = append(extracted, domain.ExtractedFile{
			Path: target,
			URL:  file.URL,
			Text: entry.Name,
		})
	}

	e.logger.Debug("expanded archive", "path", file.Path, "entries", len(extracted))
	return extracted, nil
}

// entryFileName flattens the entry to its base name and prefixes it with the
// container stem and entry index so nested duplicates and concurrent runs
// cannot overwrite each other.
func entryFileName(stem string, index int, name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = "entry"
	}
	return fmt.Sprintf("%s__%02d_%s", stem, index, base)
}

func (e *Expander) writeEntry(entry *zip.File, target string) error {
	if e.maxEntryBytes > 0 && entry.UncompressedSize64 > uint64(e.maxEntryBytes) {
		return ErrEntryTooLarge
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}

	var body io.Reader = src
	if e.maxEntryBytes > 0 {
		body = io.LimitReader(src, e.maxEntryBytes+1)
	}
	n, err := io.Copy(dst, body)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if e.maxEntryBytes > 0 && n > e.maxEntryBytes {
		return ErrEntryTooLarge
	}
	return nil
}
