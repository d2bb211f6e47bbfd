// Package ingestion turns an uploaded resume file into clean plain text.
package ingestion

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// MaxResumeBytes caps an uploaded resume.
const MaxResumeBytes = 2 << 20

var (
	// ErrEmptyFile is returned for files with no usable text.
	ErrEmptyFile = errors.New("file is empty")
	// ErrFileTooLarge is returned for files over MaxResumeBytes.
	ErrFileTooLarge = errors.New("file exceeds the 2 MiB limit")
)

// UnsupportedFormatError is returned for binary documents whose text cannot be
// extracted reliably.
type UnsupportedFormatError struct {
	Filename string
	MIMEType string
}

func (e *UnsupportedFormatError) Error() string {
	name := e.Filename
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s (%s) cannot be read as text; please copy and paste your resume text instead", name, e.MIMEType)
}

// Resume is the text extracted from an uploaded file.
type Resume struct {
	Text     string    `json:"text"`
	Metadata *Metadata `json:"metadata"`
}

// IngestResume detects the format of data and extracts its text. Plain text
// and markdown are cleaned directly, HTML is reduced to its visible text, and
// anything else (PDF, Word, images) is rejected.
func IngestResume(filename string, data []byte) (*Resume, error) {
	if len(data) > MaxResumeBytes {
		return nil, ErrFileTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	mt := mimetype.Detect(data)

	var raw string
	switch {
	case isHTML(mt, filename):
		text, err := htmlText(data)
		if err != nil {
			return nil, err
		}
		raw = text
	case isText(mt):
		raw = strings.ToValidUTF8(string(data), "")
	default:
		return nil, &UnsupportedFormatError{Filename: filename, MIMEType: mt.String()}
	}

	text := CleanText(raw)
	if text == "" {
		return nil, ErrEmptyFile
	}
	return &Resume{
		Text:     text,
		Metadata: NewMetadata(text, filename, mt.String()),
	}, nil
}

// isText reports whether mt is text/plain or a descendant of it (csv, json,
// and the like).
func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func isHTML(mt *mimetype.MIME, filename string) bool {
	if mt.Is("text/html") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return isText(mt) && (ext == ".html" || ext == ".htm")
}

var blockSelectors = "p, div, li, tr, h1, h2, h3, h4, h5, h6, section, article, header, footer"

// htmlText extracts the readable text of an HTML document, one block per line.
func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse HTML")
	}

	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").PrependHtml("- ")
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("# ")
	})
	doc.Find(blockSelectors).AppendHtml("\n")

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return root.Text(), nil
}
