package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// MaxPDFPages is how many leading pages the scoring service reads from a PDF.
// Local extraction stops at the same page so evidence offsets line up.
const MaxPDFPages = 20

// PlainText returns the local text of the document.
// PDFs are extracted page by page; everything else is decoded as UTF-8.
func (s Source) PlainText() (string, error) {
	if !s.HasData() {
		return "", fmt.Errorf("%s: %w", s.Role, ErrEmpty)
	}

	if s.Mode == ModeText {
		return strings.TrimSpace(s.Text), nil
	}

	data := s.File.Bytes()

	var (
		text string
		err  error
	)
	if isPDF(s.File.Name, data) {
		text, err = extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("read pdf %q: %w", s.File.Name, err)
		}
	} else {
		text = strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
	}

	if text == "" {
		return "", fmt.Errorf("no readable text in %q: %w", s.File.Name, ErrEmpty)
	}

	return text, nil
}

func isPDF(name string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") || bytes.HasPrefix(data, pdfMagic)
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := readPages(r.NumPage(), MaxPDFPages, func(pageIndex int) (string, bool) {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			return "", false
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages
			return "", false
		}
		return text, true
	})

	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

// readPages calls read for pages 1..min(total, limit) and keeps the pages it
// could read.
func readPages(total, limit int, read func(pageIndex int) (string, bool)) []string {
	total = min(total, limit)

	pages := make([]string, 0, total)
	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		if text, ok := read(pageIndex); ok {
			pages = append(pages, text)
		}
	}
	return pages
}
