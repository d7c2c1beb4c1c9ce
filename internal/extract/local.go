package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"

	"docflow-backend/internal/shared/storage/object"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeHTML = "text/html"
	mimeRTF  = "application/rtf"
	mimeODT  = "application/vnd.oasis.opendocument.text"

	defaultMaxBytes = 20 << 20
)

// Local parses documents in-process: PDFs with ledongthuc/pdf, office and
// HTML formats with docconv, and text/* as-is.
type Local struct {
	store    object.ObjectStore
	maxBytes int64
}

// NewLocal creates an extractor reading objects from store.
func NewLocal(store object.ObjectStore) *Local {
	return &Local{store: store, maxBytes: defaultMaxBytes}
}

// Extract reads the object and returns PAGE and LINE blocks.
func (l *Local) Extract(ctx context.Context, ref Ref) ([]Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := l.store.Open(ctx, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("extract key=%s: %w", ref.Key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("extract key=%s: read: %w", ref.Key, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("extract key=%s: object exceeds %d bytes", ref.Key, l.maxBytes)
	}
	blocks, err := BlocksFromBytes(ctx, data, ref.ContentType, ref.FileName)
	if err != nil {
		return nil, fmt.Errorf("extract key=%s mime=%s: %w", ref.Key, ref.ContentType, err)
	}
	return blocks, nil
}

// BlocksFromBytes extracts blocks from an in-memory payload.
func BlocksFromBytes(ctx context.Context, data []byte, contentType, fileName string) ([]Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch mime := normalizeMimeType(contentType, fileName, data); {
	case mime == mimePDF:
		return pdfBlocks(data)
	case mime == mimeDOCX, mime == mimeHTML, mime == mimeRTF, mime == mimeODT:
		res, err := docconv.Convert(bytes.NewReader(data), mime, false)
		if err != nil {
			return nil, err
		}
		return LinesFromText(res.Body), nil
	case strings.HasPrefix(mime, "text/"):
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: %s is not valid utf-8", ErrUnsupportedType, mime)
		}
		return LinesFromText(string(data)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
}

func pdfBlocks(data []byte) ([]Block, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}
	var out []Block
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		out = append(out, Block{Type: BlockTypePage, Text: fmt.Sprintf("page %d", i)})
		out = append(out, LinesFromText(text)...)
	}
	return out, nil
}

func normalizeMimeType(contentType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if clean == "" || clean == "application/octet-stream" {
		if byExt := mimeFromExt(fileName); byExt != "" {
			return byExt
		}
	}
	if clean != "application/zip" {
		return clean
	}
	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}
	if byExt := mimeFromExt(fileName); byExt != "" {
		return byExt
	}
	return clean
}

func mimeFromExt(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return mimePDF
	case ".docx":
		return mimeDOCX
	case ".html", ".htm":
		return mimeHTML
	case ".rtf":
		return mimeRTF
	case ".odt":
		return mimeODT
	case ".txt", ".md", ".csv":
		return "text/plain"
	default:
		return ""
	}
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return mimeDOCX
		}
	}
	return ""
}

var _ Extractor = (*Local)(nil)
