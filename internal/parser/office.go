package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"pdf-qa/internal/models"
)

// DOCX returns the body text of a Word document, one paragraph per line.
func DOCX(raw []byte, metadata map[string]string) ([]models.Document, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: docx: %w", models.ErrParse, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var lines []string
	for _, para := range strings.Split(content, "</w:p>") {
		if line := extractTextFromXML(para, "w:t"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return single(strings.Join(lines, "\n"), metadata), nil
}

// PPTX returns the text of every slide in slide order, slides separated by a
// blank line.
func PPTX(raw []byte, metadata map[string]string) ([]models.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: pptx: %w", models.ErrParse, err)
	}

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range zr.File {
		name, ok := strings.CutPrefix(file.Name, "ppt/slides/slide")
		if !ok || !strings.HasSuffix(name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(name, ".xml"))
		if err != nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: pptx %s: %w", models.ErrParse, file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: pptx %s: %w", models.ErrParse, file.Name, err)
		}
		slides = append(slides, slide{num: num, text: extractTextFromXML(string(data), "a:t")})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	texts := make([]string, 0, len(slides))
	for _, s := range slides {
		if strings.TrimSpace(s.text) != "" {
			texts = append(texts, s.text)
		}
	}
	md := models.CopyMetadata(metadata)
	md[models.MetaPages] = strconv.Itoa(len(slides))
	return []models.Document{{Content: strings.Join(texts, "\n\n"), Metadata: md}}, nil
}

// XLSX renders every sheet as tab separated rows under a "## Sheet: name" header.
func XLSX(raw []byte, metadata map[string]string) ([]models.Document, error) {
	f, err := xlsx.OpenBinary(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %w", models.ErrParse, err)
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		writeSheet(&text, sheet.Name, rows)
	}
	return single(strings.TrimSpace(text.String()), metadata), nil
}

// XLSM handles macro-enabled workbooks, which only excelize reads.
func XLSM(raw []byte, metadata map[string]string) ([]models.Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: xlsm: %w", models.ErrParse, err)
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("%w: xlsm sheet %s: %w", models.ErrParse, sheetName, err)
		}
		writeSheet(&text, sheetName, rows)
	}
	return single(strings.TrimSpace(text.String()), metadata), nil
}

func writeSheet(text *strings.Builder, name string, rows [][]string) {
	fmt.Fprintf(text, "## Sheet: %s\n", name)
	for _, row := range rows {
		text.WriteString(strings.Join(row, "\t"))
		text.WriteString("\n")
	}
	text.WriteString("\n")
}
