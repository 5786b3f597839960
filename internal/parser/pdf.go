package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdf-qa/internal/models"
)

// PDF extracts the plain text of every page and returns it as one Document.
// Pages are joined with a blank line.
func PDF(raw []byte, metadata map[string]string) (docs []models.Document, err error) {
	// ledongthuc/pdf panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("%w: pdf: %v", models.ErrParse, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: pdf: %w", models.ErrParse, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: pdf page %d: %w", models.ErrParse, i, err)
		}
		pages = append(pages, strings.TrimSpace(pageText))
	}

	md := models.CopyMetadata(metadata)
	md[models.MetaPages] = strconv.Itoa(numPages)
	return []models.Document{{Content: strings.Join(pages, "\n\n"), Metadata: md}}, nil
}
