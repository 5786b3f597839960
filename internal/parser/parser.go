package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"pdf-qa/internal/loader"
	"pdf-qa/internal/models"
)

const (
	MIMEPDF      = "application/pdf"
	MIMEText     = "text/plain"
	MIMEMarkdown = "text/markdown"
	MIMEDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPPTX     = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEXLSM     = "application/vnd.ms-excel.sheet.macroEnabled.12"
)

var variants = map[string]loader.ParseFunc{
	MIMEPDF:      PDF,
	MIMEText:     Text,
	MIMEMarkdown: Markdown,
	MIMEDOCX:     DOCX,
	MIMEPPTX:     PPTX,
	MIMEXLSX:     XLSX,
	MIMEXLSM:     XLSM,
}

var extensions = map[string]string{
	".pdf":  MIMEPDF,
	".txt":  MIMEText,
	".md":   MIMEMarkdown,
	".docx": MIMEDOCX,
	".pptx": MIMEPPTX,
	".xlsx": MIMEXLSX,
	".xlsm": MIMEXLSM,
}

// Dispatch picks a parser variant from the declared blob type, then the source
// file extension, then the sniffed content type.
func Dispatch(raw []byte, metadata map[string]string) ([]models.Document, error) {
	mediaType := DetectType(raw, metadata)
	parse, ok := variants[mediaType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file format: %s", models.ErrParse, mediaType)
	}
	log.Debug().Str("source", metadata[models.MetaSource]).Str("type", mediaType).Msg("Parsing document")
	return parse(raw, metadata)
}

// For returns the parser registered for a MIME type.
func For(mediaType string) (loader.ParseFunc, bool) {
	p, ok := variants[baseType(mediaType)]
	return p, ok
}

func DetectType(raw []byte, metadata map[string]string) string {
	if t := baseType(metadata[models.MetaBlobType]); t != "" {
		return t
	}
	if metadata[models.MetaSource] != models.BlobSource {
		ext := strings.ToLower(filepath.Ext(metadata[models.MetaSource]))
		if t, ok := extensions[ext]; ok {
			return t
		}
	}
	return baseType(mimetype.Detect(raw).String())
}

// baseType strips MIME parameters such as "; charset=utf-8".
func baseType(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// Text treats the bytes as UTF-8 text.
func Text(raw []byte, metadata map[string]string) ([]models.Document, error) {
	return single(string(raw), metadata), nil
}

func single(content string, metadata map[string]string) []models.Document {
	return []models.Document{{Content: content, Metadata: models.CopyMetadata(metadata)}}
}

// extractTextFromXML collects the character data of every <tag>…</tag> element,
// separated by spaces. Used for the OOXML formats.
func extractTextFromXML(xmlContent, tag string) string {
	open := "<" + tag
	closing := "</" + tag + ">"
	var text strings.Builder
	rest := xmlContent
	for {
		i := strings.Index(rest, open)
		if i < 0 {
			break
		}
		rest = rest[i+len(open):]
		// skip prefixes like <w:tbl when looking for <w:t
		if len(rest) == 0 || (rest[0] != '>' && rest[0] != ' ') {
			continue
		}
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			break
		}
		if gt > 0 && rest[gt-1] == '/' {
			rest = rest[gt+1:]
			continue
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, closing)
		if end < 0 {
			break
		}
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(unescapeXML(rest[:end]))
		rest = rest[end+len(closing):]
	}
	return text.String()
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string { return xmlEntities.Replace(s) }
