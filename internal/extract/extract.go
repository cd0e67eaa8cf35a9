// Package extract converts uploaded document bytes into plain UTF-8 text.
package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedType is returned for content types the extractor does
	// not handle.
	ErrUnsupportedType = errors.New("extract: unsupported content type")
	// ErrExtraction is returned when input is empty or its text cannot be
	// recovered. The caller must reject the whole upload.
	ErrExtraction = errors.New("extract: extraction failed")
)

// Extract converts raw bytes into plain text based on the declared content
// type. It is a pure transform: no partial output is ever returned alongside
// an error.
func Extract(data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrExtraction)
	}
	switch normalizeMIME(mimeType) {
	case "application/pdf":
		return fromPDF(data)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return fromDOCX(data)
	case "text/plain":
		return fromPlainText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// fromPDF recovers the embedded text stream. The pdf library reads from a
// path, so the upload is spooled to a temp file first. The library panics on
// some malformed files, so the whole read is wrapped in a recover.
func fromPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed pdf: %v", ErrExtraction, r)
		}
	}()
	tmp, err := os.CreateTemp("", "studyowl-*.pdf")
	if err != nil {
		return "", fmt.Errorf("%w: temp file: %v", ErrExtraction, err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("%w: temp write: %v", ErrExtraction, err)
	}

	f, rdr, err := pdf.Open(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrExtraction, err)
	}
	defer f.Close()

	body, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", ErrExtraction, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("%w: read pdf buffer: %v", ErrExtraction, err)
	}
	text = strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("%w: no text in pdf", ErrExtraction)
	}
	return text, nil
}

var xmlTag = regexp.MustCompile(`<[^>]+>`)

// fromDOCX is a best-effort extraction: it unzips word/document.xml and
// strips markup, keeping only text runs. It does not parse the Office XML
// schema, so layout and some formatting artifacts are lost. That fidelity
// loss is a documented approximation, not a target to perfect.
func fromDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %v", ErrExtraction, err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open document.xml: %v", ErrExtraction, err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: read document.xml: %v", ErrExtraction, err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("%w: word/document.xml missing", ErrExtraction)
	}

	// Paragraph and break tags become spaces so runs don't concatenate.
	s := string(docXML)
	s = strings.ReplaceAll(s, "</w:p>", "</w:p> ")
	s = strings.ReplaceAll(s, "<w:br/>", " ")
	s = strings.ReplaceAll(s, "<w:tab/>", " ")
	s = xmlTag.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&apos;", "'")

	text := strings.Join(strings.Fields(s), " ")
	if text == "" {
		return "", fmt.Errorf("%w: no text in docx", ErrExtraction)
	}
	return text, nil
}

// fromPlainText passes the input through with encoding normalization:
// invalid UTF-8 sequences are dropped.
func fromPlainText(data []byte) (string, error) {
	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		text = strings.ToValidUTF8(string(data), "")
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text file", ErrExtraction)
	}
	return text, nil
}
