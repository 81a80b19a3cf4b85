package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/scanner"
)

const (
	eoglasnaName   = "eoglasna"
	notAvailable   = "N/A"
	defaultBaseURL = "https://e-oglasna.pravosudje.hr"
)

var errNoTitle = errors.New("result item has no notice link")

// EoglasnaOptions locates the search endpoint of the court notice board.
type EoglasnaOptions struct {
	BaseURL           string
	SearchPath        string
	QueryParam        string
	UserAgent         string
	RequestsPerSecond float64
}

// EoglasnaScanner searches the public court notice board and parses result items.
type EoglasnaScanner struct {
	client *http.Client
	opts   EoglasnaOptions
	base   *url.URL
	logger *slog.Logger
}

var _ scanner.Scanner = (*EoglasnaScanner)(nil)

// NewEoglasnaScanner wires an HTTP client; a nil client gets a 90s timeout.
func NewEoglasnaScanner(client *http.Client, opts EoglasnaOptions, logger *slog.Logger) (*EoglasnaScanner, error) {
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.SearchPath == "" {
		opts.SearchPath = "/pretraga"
	}
	if opts.QueryParam == "" {
		opts.QueryParam = "text"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "CourtMonitor/1.0"
	}
	if logger == nil {
		logger = slog.Default()
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}
	return &EoglasnaScanner{client: client, opts: opts, base: base, logger: logger}, nil
}

// Name identifies the strategy inside the registry.
func (e *EoglasnaScanner) Name() string {
	return eoglasnaName
}

// Open starts a cookie-carrying session and loads the landing page once.
func (e *EoglasnaScanner) Open(ctx context.Context) (scanner.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client := *e.client
	client.Jar = jar

	s := &eoglasnaSession{scanner: e, client: &client}
	if e.opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(e.opts.RequestsPerSecond), 1)
	}

	resp, err := s.get(ctx, e.base.String())
	if err != nil {
		return nil, fmt.Errorf("reach %s: %w", e.base, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	e.logger.Debug("search session opened", "base_url", e.base.String())
	return s, nil
}

type eoglasnaSession struct {
	scanner *EoglasnaScanner
	client  *http.Client
	limiter *rate.Limiter
}

// Search fetches the result page for the query. Items missing a notice link are skipped.
func (s *eoglasnaSession) Search(ctx context.Context, req scanner.Request) ([]domain.FilingInfo, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	searchURL := s.scanner.searchURL(query)
	doc, err := s.fetchDocument(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	filings := extractFilings(doc, s.scanner.base)
	s.scanner.logger.Debug("parsed search results", "query", query, "count", len(filings))
	return filings, nil
}

func (s *eoglasnaSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *eoglasnaSession) get(ctx context.Context, target string) (*http.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.scanner.opts.UserAgent)
	req.Header.Set("Accept-Language", "hr,en-US;q=0.8,en;q=0.6")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("notice board returned %s", resp.Status)
	}
	return resp, nil
}

func (s *eoglasnaSession) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := s.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (e *EoglasnaScanner) searchURL(query string) string {
	u := *e.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(e.opts.SearchPath, "/")
	q := url.Values{}
	q.Set(e.opts.QueryParam, query)
	u.RawQuery = q.Encode()
	return u.String()
}

func extractFilings(doc *goquery.Document, base *url.URL) []domain.FilingInfo {
	var filings []domain.FilingInfo
	doc.Find("li.item.row").Each(func(_ int, item *goquery.Selection) {
		filing, err := parseItem(item, base)
		if err != nil {
			return
		}
		filings = append(filings, filing)
	})
	return filings
}

func parseItem(item *goquery.Selection, base *url.URL) (domain.FilingInfo, error) {
	title := item.Find(`a[href*="/objave/"][target="_blank"]`).First()
	if title.Length() == 0 {
		return domain.FilingInfo{}, errNoTitle
	}
	href, _ := title.Attr("href")

	filing := domain.FilingInfo{
		Title:        clean(title.Text()),
		DetailLink:   resolve(base, href),
		CaseNumber:   textOr(item.Find(`a[href*="text="]`).First()),
		Court:        notAvailable,
		Date:         textOr(item.Find(".m-date").First()),
		Participants: parseParticipants(item),
	}

	item.Find("div small").EachWithBreak(func(_ int, small *goquery.Selection) bool {
		if clean(small.Text()) != "Sud" {
			return true
		}
		filing.Court = textOr(small.Parent().Find("a span").First())
		return false
	})

	if doc := item.Find(`a[href$="/preuzimanje"]`).First(); doc.Length() > 0 {
		link, _ := doc.Attr("href")
		text := clean(doc.Text())
		if text == "" {
			text = "Dokumenti za " + filing.CaseNumber
		}
		filing.Attachments = []domain.AttachmentLink{{URL: resolve(base, link), Text: text}}
	}

	return filing, nil
}

func parseParticipants(item *goquery.Selection) []domain.Participant {
	var container *goquery.Selection
	item.Find("small.text-muted.d-block").Each(func(_ int, small *goquery.Selection) {
		if clean(small.Text()) == "Sudionici" {
			container = small.Parent()
		}
	})
	if container == nil {
		return nil
	}

	var participants []domain.Participant
	container.Find(".d-block").Each(func(_ int, block *goquery.Selection) {
		name := clean(block.Find("span:not(.badge)").First().Text())
		if name == "" {
			return
		}
		participants = append(participants, domain.Participant{
			Name:    name,
			OIB:     labelled(block.Find(`small[data-original-title="OIB"]`).First(), "OIB"),
			Address: labelled(block.Find(`small[data-original-title="Adresa"]`).First(), "ADRESA"),
			Role:    textOr(block.Find("span.badge-info").First()),
		})
	})
	return participants
}

// labelled strips the superscript label the board renders inside the value.
func labelled(sel *goquery.Selection, label string) string {
	if sel.Length() == 0 {
		return notAvailable
	}
	return clean(strings.Replace(sel.Text(), label, "", 1))
}

func textOr(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return notAvailable
	}
	return clean(sel.Text())
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
