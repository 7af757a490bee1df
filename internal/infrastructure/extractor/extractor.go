// Package extractor turns stored source documents into plain text.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
)

// Format identifies a supported source format.
type Format string

const (
	FormatPlainText   Format = "text"
	FormatMarkdown    Format = "markdown"
	FormatHTML        Format = "html"
	FormatPDF         Format = "pdf"
	FormatSpreadsheet Format = "spreadsheet"
)

const defaultMaxBytes = 64 << 20

type decodeFunc func(raw []byte) (string, error)

// Extractor reads a document from object storage and decodes it according to
// its mime type or file extension.
type Extractor struct {
	storage  ports.ObjectStorage
	maxBytes int64
	decoders map[Format]decodeFunc
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{
		storage:  storage,
		maxBytes: defaultMaxBytes,
		decoders: map[Format]decodeFunc{
			FormatPlainText:   decodePlainText,
			FormatMarkdown:    decodeMarkdown,
			FormatHTML:        decodeHTML,
			FormatPDF:         decodePDF,
			FormatSpreadsheet: decodeSpreadsheet,
		},
	}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	format, err := DetectFormat(doc.Name, doc.MimeType)
	if err != nil {
		return "", err
	}

	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, e.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	if int64(len(raw)) > e.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("%s exceeds %d bytes", doc.Name, e.maxBytes))
	}

	text, err := e.decoders[format](raw)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract "+string(format), err)
	}
	return strings.TrimSpace(text), nil
}

// DetectFormat picks a format from the file extension, then the mime type.
func DetectFormat(name, mimeType string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", ".csv", ".log":
		return FormatPlainText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	case ".pdf":
		return FormatPDF, nil
	case ".xlsx", ".xlsm":
		return FormatSpreadsheet, nil
	}

	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case mediaType == "text/markdown" || mediaType == "text/x-markdown":
		return FormatMarkdown, nil
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return FormatHTML, nil
	case mediaType == "application/pdf":
		return FormatPDF, nil
	case mediaType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatSpreadsheet, nil
	case strings.HasPrefix(mediaType, "text/"):
		return FormatPlainText, nil
	}
	return "", domain.WrapError(domain.ErrInvalidInput, "detect format", fmt.Errorf("unsupported document %q (%s)", name, mimeType))
}

// Supported reports whether name or mimeType maps to a known format.
func Supported(name, mimeType string) bool {
	_, err := DetectFormat(name, mimeType)
	return err == nil
}

func joinLines(lines []string) string {
	var b bytes.Buffer
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}
