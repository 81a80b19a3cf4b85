package usecase

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CourtMonitor/internal/archive"
	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/locale"
	"CourtMonitor/internal/metrics"
	"CourtMonitor/internal/ports"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// diskFetcher writes one real file per link so cleanup can be observed.
type diskFetcher struct {
	dir     string
	mu      sync.Mutex
	calls   int
	counter int
	after   func(calls int)
}

func (f *diskFetcher) FetchAll(_ context.Context, links []domain.AttachmentLink) ([]domain.DownloadedFile, []domain.LinkFailure) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()

	var out []domain.DownloadedFile
	var failed []domain.LinkFailure
	for _, link := range links {
		if strings.Contains(link.URL, "gone") {
			failed = append(failed, domain.LinkFailure{Link: link, Error: "status 404 Not Found"})
			continue
		}
		f.mu.Lock()
		f.counter++
		n := f.counter
		f.mu.Unlock()

		ext := filepath.Ext(link.URL)
		path := filepath.Join(f.dir, fmt.Sprintf("%03d_download%s", n, ext))
		switch {
		case strings.HasSuffix(link.URL, "broken.zip"):
			_ = os.WriteFile(path, []byte("not a zip archive"), 0o644)
		case ext == ".zip":
			writeZip(path, map[string]string{"rjesenje.txt": "rješenje", "oglas.txt": "oglas"})
		default:
			_ = os.WriteFile(path, []byte(link.Text), 0o644)
		}
		out = append(out, domain.DownloadedFile{Path: path, URL: link.URL, Text: link.Text})
	}
	if f.after != nil {
		f.after(calls)
	}
	return out, failed
}

func (f *diskFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func writeZip(path string, entries map[string]string) {
	file, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer file.Close()
	zw := zip.NewWriter(file)
	for name, body := range entries {
		w, _ := zw.Create(name)
		_, _ = w.Write([]byte(body))
	}
	_ = zw.Close()
}

type echoAnalyzer struct {
	mu      sync.Mutex
	batches [][]domain.ExtractedFile
}

func (a *echoAnalyzer) Analyze(_ context.Context, files []domain.ExtractedFile) []domain.DocumentAnalysis {
	a.mu.Lock()
	a.batches = append(a.batches, files)
	a.mu.Unlock()

	out := make([]domain.DocumentAnalysis, len(files))
	for i, f := range files {
		out[i] = domain.Succeed(f, domain.DocumentResult{Summary: "summary of " + f.Text})
	}
	return out
}

type countingSynthesizer struct {
	mu    sync.Mutex
	calls int
	seen  []domain.ProcessedFiling
}

func (s *countingSynthesizer) Synthesize(_ context.Context, filings []domain.ProcessedFiling) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.seen = filings
	return fmt.Sprintf("narrative over %d filings", len(filings))
}

type fakeSession struct {
	mu      sync.Mutex
	results map[string][]domain.FilingInfo
	errs    map[string]error
	queries []string
	closed  int
}

func (s *fakeSession) FindLatest(_ context.Context, query string, limit int) ([]domain.FilingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	found := s.results[query]
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeProvider struct {
	session *fakeSession
	openErr error
	opens   int
}

func (p *fakeProvider) Open(context.Context) (ports.SearchSession, error) {
	p.opens++
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.session, nil
}

type recorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *recorder) Emit(e domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) steps() []domain.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Step, len(r.events))
	for i, e := range r.events {
		out[i] = e.Step
	}
	return out
}

func (r *recorder) last() domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type harness struct {
	dir         string
	fetcher     *diskFetcher
	analyzer    *echoAnalyzer
	synthesizer *countingSynthesizer
	session     *fakeSession
	provider    *fakeProvider
	pipeline    *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		dir:         dir,
		fetcher:     &diskFetcher{dir: dir},
		analyzer:    &echoAnalyzer{},
		synthesizer: &countingSynthesizer{},
		session:     &fakeSession{results: map[string][]domain.FilingInfo{}, errs: map[string]error{}},
	}
	h.provider = &fakeProvider{session: h.session}
	h.pipeline = NewPipeline(PipelineDeps{
		Search:      h.provider,
		Fetcher:     h.fetcher,
		Expander:    archive.New(0, quietLogger()),
		Analyzer:    h.analyzer,
		Synthesizer: h.synthesizer,
		Catalog:     locale.For("hr"),
		Logger:      quietLogger(),
	})
	return h
}

func (h *harness) remaining(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func filing(caseNumber, date string, links ...string) domain.FilingInfo {
	f := domain.FilingInfo{Title: "Oglas " + caseNumber, CaseNumber: caseNumber, Date: date}
	for _, l := range links {
		f.Attachments = append(f.Attachments, domain.AttachmentLink{URL: "https://example.test/" + l, Text: l})
	}
	return f
}

func TestRunProcessesFilingsSequentiallyInOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := &recorder{}
	filings := []domain.FilingInfo{
		filing("St-3/2024", "3.3.2024.", "a.pdf", "b.pdf"),
		filing("St-2/2024", "2.2.2024."),
		filing("St-1/2024", "1.1.2024.", "c.zip"),
	}

	result, err := h.pipeline.Run(context.Background(), filings, rec)
	require.NoError(t, err)

	require.Len(t, result.Filings, 3)
	for i, pf := range result.Filings {
		assert.Equal(t, filings[i].CaseNumber, pf.Filing.CaseNumber)
	}
	assert.Len(t, result.Filings[0].Analyses, 2)
	assert.Empty(t, result.Filings[1].Analyses)
	assert.Equal(t, locale.For("hr").NoDocumentsNote, result.Filings[1].Note)
	assert.Len(t, result.Filings[2].Files, 1, "the container stays listed as the downloaded file")
	assert.Len(t, result.Filings[2].Analyses, 2, "both archive entries are analysed")
	assert.Equal(t, "narrative over 3 filings", result.Narrative)
	assert.Equal(t, 1, h.synthesizer.calls)
	assert.Len(t, h.analyzer.batches, 2)

	assert.Empty(t, h.remaining(t), "every temporary file is removed")

	steps := rec.steps()
	assert.Equal(t, domain.StepProcessingSetup, steps[0])
	assert.Equal(t, domain.StepComplete, rec.last().Step)
	assert.Equal(t, 1, strings.Count(fmt.Sprint(steps), string(domain.StepComparing)))

	previous := 0.0
	for _, e := range rec.events {
		if e.Progress == nil {
			continue
		}
		assert.GreaterOrEqual(t, *e.Progress, previous, "progress for %s went backwards", e.Step)
		previous = *e.Progress
	}

	public, ok := rec.last().Data.(domain.PublicResult)
	require.True(t, ok)
	require.Len(t, public.Filings, 3)
	for _, pf := range public.Filings {
		for _, f := range pf.Files {
			assert.NotContains(t, f.URL, h.dir)
		}
	}
}

func TestRunRecordsUnreadableArchiveAndFailedLinks(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := &recorder{}

	result, err := h.pipeline.Run(context.Background(), []domain.FilingInfo{
		filing("Ovr-4/2024", "4.4.2024.", "ok.txt", "broken.zip", "gone.pdf"),
	}, rec)
	require.NoError(t, err)

	require.Len(t, result.Filings, 1)
	pf := result.Filings[0]
	assert.Len(t, pf.Files, 2)
	require.Len(t, pf.Analyses, 2, "the unreadable archive is reported next to the analysed file")
	assert.True(t, pf.Analyses[0].Succeeded())
	assert.Equal(t, "ok.txt", pf.Analyses[0].File.Text)
	assert.False(t, pf.Analyses[1].Succeeded())
	assert.Equal(t, "broken.zip", pf.Analyses[1].File.Text)
	assert.Contains(t, pf.Analyses[1].Error, "open archive")
	require.Len(t, pf.FailedLinks, 1)
	assert.Equal(t, "gone.pdf", pf.FailedLinks[0].Link.Text)
	assert.Empty(t, pf.Note)

	public, ok := rec.last().Data.(domain.PublicResult)
	require.True(t, ok)
	require.Len(t, public.Filings[0].Failed, 1)
	assert.Equal(t, "gone.pdf", public.Filings[0].Failed[0].Text)
	assert.Empty(t, h.remaining(t))
}

func TestRunOnlyUnreadableArchiveSkipsAnalyzer(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	result, err := h.pipeline.Run(context.Background(), []domain.FilingInfo{
		filing("Ovr-5/2024", "5.5.2024.", "broken.zip"),
	}, nil)
	require.NoError(t, err)

	pf := result.Filings[0]
	require.Len(t, pf.Analyses, 1)
	assert.NotEmpty(t, pf.Analyses[0].Error)
	assert.Empty(t, pf.Note)
	assert.Empty(t, h.analyzer.batches)
}

func TestRunQueryCountsSessionOpenFailures(t *testing.T) {
	h := newHarness(t)
	h.provider.openErr = errors.New("board unreachable")
	failures := metrics.RunsTotal.WithLabelValues("query", "error")
	before := testutil.ToFloat64(failures)

	_, err := h.pipeline.RunQuery(context.Background(), "ovrha", 2, nil)

	require.ErrorContains(t, err, "board unreachable")
	assert.Equal(t, before+1, testutil.ToFloat64(failures))
}

func TestRunCleansUpWhenInterrupted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.fetcher.after = func(int) { cancel() }
	rec := &recorder{}

	_, err := h.pipeline.Run(ctx, []domain.FilingInfo{
		filing("P-1/2024", "1.1.2024.", "first.zip"),
		filing("P-2/2024", "2.1.2024.", "second.pdf"),
	}, rec)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, h.fetcher.callCount())
	assert.Empty(t, h.remaining(t), "files of the interrupted run are removed")
	assert.Equal(t, domain.StepError, rec.last().Step)
	assert.Zero(t, h.synthesizer.calls)
}

func TestRunWithoutFilings(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := &recorder{}

	_, err := h.pipeline.Run(context.Background(), nil, rec)

	require.ErrorIs(t, err, domain.ErrNoCases)
	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.StepError, rec.events[0].Step)
	assert.Equal(t, locale.For("hr").NoCases, rec.events[0].Message)
}

func TestRunQueryEmptySearchFailsBeforeDownloads(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := &recorder{}

	_, err := h.pipeline.RunQuery(context.Background(), "nepostojeći pojam", 2, rec)

	require.ErrorIs(t, err, domain.ErrNoFilings)
	assert.Zero(t, h.fetcher.callCount())
	assert.Equal(t, []domain.Step{domain.StepScraping, domain.StepError}, rec.steps())
	assert.Equal(t, locale.For("hr").NoFilings, rec.last().Message)
	assert.Equal(t, 1, h.provider.opens)
	assert.Equal(t, 1, h.session.closed)
}

func TestRunQuerySearchErrorEmitsOneErrorEvent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.session.errs["ovrha"] = errors.New("upstream unavailable")
	rec := &recorder{}

	_, err := h.pipeline.RunQuery(context.Background(), "ovrha", 2, rec)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.Equal(t, 1, strings.Count(fmt.Sprint(rec.steps()), string(domain.StepError)))
	assert.Equal(t, 1, h.session.closed)
}

func TestRunQueryWithSessionLeavesSessionOpen(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.session.results["stečaj"] = []domain.FilingInfo{
		filing("St-9/2024", "9.9.2024.", "x.pdf"),
		filing("St-8/2024", "8.8.2024.", "y.pdf"),
		filing("St-7/2024", "7.7.2024.", "z.pdf"),
	}

	result, err := h.pipeline.RunQueryWithSession(context.Background(), h.session, "  stečaj ", 0, nil)

	require.NoError(t, err)
	assert.Len(t, result.Filings, defaultCaseLimit)
	assert.Equal(t, []string{"stečaj"}, h.session.queries)
	assert.Zero(t, h.session.closed)
	assert.Empty(t, h.remaining(t))
}

func TestRunQueryRejectsBlankQuery(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	rec := &recorder{}

	_, err := h.pipeline.RunQuery(context.Background(), "   ", 2, rec)

	require.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Equal(t, []domain.Step{domain.StepError}, rec.steps())
	assert.Empty(t, h.session.queries)
}

func TestCleanupListReleasesOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tmp.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	c := newCleanupList(quietLogger())
	c.Add(path)
	c.Add(filepath.Join(dir, "missing.txt"))
	c.Add("")
	c.Release()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(path, []byte("y"), 0o644))
	c.Release()
	_, err = os.Stat(path)
	assert.NoError(t, err, "second release is a no-op")
}
