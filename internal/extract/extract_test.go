package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatPDF, Detect("/a/B.PDF"))
	assert.Equal(t, FormatDocx, Detect("x.docx"))
	assert.Equal(t, FormatText, Detect("x.txt"))
	assert.Equal(t, FormatHTML, Detect("x.htm"))
	assert.Equal(t, FormatUnknown, Detect("x.bin"))
	assert.True(t, IsPDF("presuda.pdf"))
}

func TestPlainTextUTF8AndWindows1250(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	utf := filepath.Join(dir, "utf.txt")
	require.NoError(t, os.WriteFile(utf, []byte("  Rješenje o ovrsi \n"), 0o644))

	// "Šibenik" in Windows-1250: 0x8A is Š.
	legacy := filepath.Join(dir, "legacy.txt")
	require.NoError(t, os.WriteFile(legacy, []byte{0x8A, 'i', 'b', 'e', 'n', 'i', 'k'}, 0o644))

	e := New(nil)
	text, err := e.Text(context.Background(), utf)
	require.NoError(t, err)
	assert.Equal(t, "Rješenje o ovrsi", text)

	text, err = e.Text(context.Background(), legacy)
	require.NoError(t, err)
	assert.Equal(t, "Šibenik", text)
}

func TestDocxText(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "odluka.docx")
	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Općinski sud</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Broj:</w:t><w:tab/><w:t>Ovr-123/2024</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	text, err := New(nil).Text(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Općinski sud\nBroj:\tOvr-123/2024", text)
}

func TestHTMLText(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "objava.html")
	require.NoError(t, os.WriteFile(path, []byte(`<html><head><style>p{}</style></head>
<body><script>var x=1;</script><h1>Oglas</h1>
<p>Dražba   nekretnine</p></body></html>`), 0o644))

	text, err := New(nil).Text(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Oglas Dražba nekretnine", text)
}

func TestCorruptInputsReturnErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 garbage"), 0o644))
	docxPath := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(docxPath, []byte("nope"), 0o644))

	e := New(nil)
	_, err := e.Text(context.Background(), pdfPath)
	assert.Error(t, err)
	_, err = e.Text(context.Background(), docxPath)
	assert.Error(t, err)

	text, err := e.Text(context.Background(), filepath.Join(dir, "blob.bin"))
	require.NoError(t, err)
	assert.Empty(t, text)
}
