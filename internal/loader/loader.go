// Package loader turns a byte source into Documents by delegating the bytes to a
// pluggable parser.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"pdf-qa/internal/models"
)

// ParseFunc converts raw bytes and their provenance metadata into zero or more
// Documents. Each file format is one ParseFunc.
type ParseFunc func(raw []byte, metadata map[string]string) ([]models.Document, error)

// Blob is an in-memory byte source with a declared MIME type.
type Blob struct {
	Data []byte
	Type string
}

// Source is either a file path or a blob; exactly one is set.
type Source struct {
	Path string
	Blob *Blob
}

func FromPath(path string) Source { return Source{Path: path} }

func FromBlob(data []byte, mimeType string) Source {
	return Source{Blob: &Blob{Data: data, Type: mimeType}}
}

func (s Source) String() string {
	if s.Blob != nil {
		return models.BlobSource
	}
	return s.Path
}

type Loader struct {
	parse ParseFunc
}

func New(parse ParseFunc) *Loader {
	return &Loader{parse: parse}
}

// Load reads all bytes of src and hands them to the parser.
func (l *Loader) Load(ctx context.Context, src Source) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, metadata, err := read(src)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("source", src.String()).Int("bytes", len(raw)).Msg("Read byte source")

	docs, err := l.parse(raw, metadata)
	if err != nil {
		if errors.Is(err, models.ErrParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", models.ErrParse, src, err)
	}
	return docs, nil
}

func read(src Source) ([]byte, map[string]string, error) {
	switch {
	case src.Blob != nil && src.Path != "":
		return nil, nil, fmt.Errorf("%w: source has both a path and a blob", models.ErrIO)
	case src.Blob != nil:
		return src.Blob.Data, map[string]string{
			models.MetaSource:   models.BlobSource,
			models.MetaBlobType: src.Blob.Type,
		}, nil
	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", models.ErrIO, err)
		}
		return data, map[string]string{models.MetaSource: src.Path}, nil
	default:
		return nil, nil, fmt.Errorf("%w: empty source", models.ErrIO)
	}
}
