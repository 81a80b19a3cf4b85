// Package extract pulls the native text layer out of downloaded documents.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

// Format is a document type recognised by its extension.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDocx    Format = "docx"
	FormatODT     Format = "odt"
	FormatText    Format = "txt"
	FormatHTML    Format = "html"
	FormatUnknown Format = ""
)

// Detect maps a path's extension to a Format.
func Detect(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDocx
	case ".odt":
		return FormatODT
	case ".txt", ".text":
		return FormatText
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatUnknown
	}
}

// IsPDF reports whether the path looks like a PDF.
func IsPDF(path string) bool {
	return Detect(path) == FormatPDF
}

// Extractor dispatches to a per-format text reader.
type Extractor struct {
	logger *slog.Logger
}

// New builds an Extractor.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Text returns the trimmed native text of the file. Unknown formats yield an
// empty string without error.
func (e *Extractor) Text(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	format := Detect(path)
	e.logger.Debug("extracting text", "path", path, "format", format)

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = pdfText(path)
	case FormatDocx:
		text, err = zippedXMLText(path, "word/document.xml", "p")
	case FormatODT:
		text, err = zippedXMLText(path, "content.xml", "p")
	case FormatText:
		text, err = plainText(path)
	case FormatHTML:
		text, err = htmlText(path)
	default:
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("extract %s (%s): %w", filepath.Base(path), format, err)
	}
	return strings.TrimSpace(text), nil
}

// plainText reads UTF-8 text, decoding Windows-1250 when the bytes are not valid UTF-8.
func plainText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.Windows1250.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode windows-1250: %w", err)
	}
	return string(decoded), nil
}

func htmlText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
}

func pdfText(path string) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("corrupt pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// zippedXMLText concatenates the character data of an XML member of an
// office container, breaking lines at each paragraph element.
func zippedXMLText(path, member, paragraph string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return xmlText(rc, paragraph)
	}
	return "", fmt.Errorf("%s not found in container", member)
}

func xmlText(r io.Reader, paragraph string) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				sb.WriteByte('\t')
			}
		case xml.EndElement:
			if t.Name.Local == paragraph {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String(), nil
}
