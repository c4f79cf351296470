// Package pdf extracts plain text from uploaded PDF files.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"

	"graph-rag/internal/domain"
)

// Result is the text of every page that yielded any, joined by newlines.
type Result struct {
	Text       string
	PagesOK    int
	PagesTotal int
}

// Extractor reads PDF bytes page by page. A page that fails, or that panics
// inside the PDF library, is skipped.
type Extractor struct{}

// Extract returns the extracted text. It fails with ErrInvalidInput when the
// file cannot be parsed or when no page yields text.
func (Extractor) Extract(data []byte) (Result, error) {
	r, err := openReader(data)
	if err != nil {
		logrus.WithError(err).Error("service: pdf reader failed")
		return Result{}, domain.WrapError("pdf.extract", domain.ErrInvalidInput, fmt.Errorf("invalid PDF file: %w", err))
	}

	res := Result{PagesTotal: r.NumPage()}
	log := logrus.WithField("pages", res.PagesTotal)
	log.Info("service: extracting text from pdf")

	var b strings.Builder
	for i := 1; i <= res.PagesTotal; i++ {
		text, err := pageText(r, i)
		if err != nil {
			log.WithError(err).WithField("page", i).Warn("service: failed to extract text from page")
			continue
		}
		if strings.TrimSpace(text) == "" {
			log.WithField("page", i).Warn("service: page had no extractable text")
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
		res.PagesOK++
	}
	res.Text = b.String()

	log.WithField("pages_ok", res.PagesOK).Info("service: pdf text extracted")
	if strings.TrimSpace(res.Text) == "" {
		return res, domain.WrapError("pdf.extract", domain.ErrInvalidInput, fmt.Errorf("could not extract any text from PDF"))
	}
	return res, nil
}

func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf library panic: %v", p)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func pageText(r *pdf.Reader, i int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf library panic: %v", p)
		}
	}()
	page := r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
