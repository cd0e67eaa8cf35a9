package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractPlainText(t *testing.T) {
	got, err := Extract([]byte("hello world\n"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", got)
}

func TestExtractPlainTextWithCharset(t *testing.T) {
	got, err := Extract([]byte("hello"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestExtractPlainTextInvalidUTF8Dropped(t *testing.T) {
	got, err := Extract([]byte{'o', 'k', 0xff, 0xfe, '!'}, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "ok!", got)
}

func TestExtractPlainTextWhitespaceOnly(t *testing.T) {
	_, err := Extract([]byte("   \n\t"), "text/plain")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractEmptyInput(t *testing.T) {
	_, err := Extract(nil, "text/plain")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := Extract([]byte("x"), "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractDOCX(t *testing.T) {
	xml := `<?xml version="1.0"?><w:document><w:body>` +
		`<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> line with &amp; entity.</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	data := buildDOCX(t, xml)

	got, err := Extract(data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph. Second line with & entity.", got)
}

func TestExtractDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w:styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract(buf.Bytes(), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractDOCXNotAnArchive(t *testing.T) {
	_, err := Extract([]byte("plainly not a zip"), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtractPDFGarbage(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4 but truncated"), "application/pdf")
	assert.ErrorIs(t, err, ErrExtraction)
}
