package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CourtMonitor/internal/domain"
)

func TestResolveExtension(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		header   http.Header
		linkText string
		want     string
	}{
		{
			name:   "content disposition wins",
			header: http.Header{"Content-Disposition": {`attachment; filename="Presuda.PDF"`}, "Content-Type": {"application/zip"}},
			want:   ".pdf",
		},
		{
			name:   "rfc 2231 filename",
			header: http.Header{"Content-Disposition": {`attachment; filename*=UTF-8''rje%C5%A1enje.docx`}},
			want:   ".docx",
		},
		{
			name:   "content type mapping",
			header: http.Header{"Content-Type": {"application/pdf; charset=binary"}},
			want:   ".pdf",
		},
		{
			name:     "octet stream falls through to link text",
			header:   http.Header{"Content-Type": {"application/octet-stream"}},
			linkText: "Preuzmi ZIP arhivu",
			want:     ".zip",
		},
		{
			name:     "generic fallback",
			header:   http.Header{"Content-Type": {"application/octet-stream"}},
			linkText: "Preuzimanje dokumenta",
			want:     ".bin",
		},
		{
			name:   "disposition without extension uses content type",
			header: http.Header{"Content-Disposition": {`attachment; filename="dokument"`}, "Content-Type": {"application/zip"}},
			want:   ".zip",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ResolveExtension(tc.header, tc.linkText))
		})
	}
}

func TestFetchWritesFileWithResolvedExtension(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("PK-fake"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "uploads")
	f := New(Options{Dir: dir}, server.Client(), nil)

	file, err := f.Fetch(context.Background(), domain.AttachmentLink{URL: server.URL + "/dokumenti/preuzimanje", Text: "Dokumenti zip / 1"})
	require.NoError(t, err)

	assert.Equal(t, ".zip", filepath.Ext(file.Path))
	assert.Equal(t, dir, filepath.Dir(file.Path))
	assert.Contains(t, filepath.Base(file.Path), "Dokumenti_zip___1")
	data, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.Equal(t, "PK-fake", string(data))
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("presuda"))
	}))
	defer server.Close()

	dir := t.TempDir()
	f := New(Options{Dir: dir}, server.Client(), nil)

	files, failed := f.FetchAll(context.Background(), []domain.AttachmentLink{
		{URL: server.URL + "/missing", Text: "nema"},
		{URL: server.URL + "/ok", Text: "presuda"},
	})

	require.Len(t, files, 1)
	assert.Equal(t, server.URL+"/ok", files[0].URL)
	require.Len(t, failed, 1)
	assert.Equal(t, "nema", failed[0].Link.Text)
	assert.Contains(t, failed[0].Error, "404")
	assert.Equal(t, ".txt", filepath.Ext(files[0].Path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetchRejectsNon2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := New(Options{Dir: t.TempDir()}, server.Client(), nil)
	_, err := f.Fetch(context.Background(), domain.AttachmentLink{URL: server.URL, Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
