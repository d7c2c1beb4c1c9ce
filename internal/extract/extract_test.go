package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"docflow-backend/internal/shared/storage/object/local"
)

func TestJoinLinesKeepsOnlyLineBlocksInOrder(t *testing.T) {
	blocks := []Block{
		{Type: BlockTypePage, Text: "page 1"},
		{Type: BlockTypeLine, Text: "Invoice #123"},
		{Type: BlockTypeWord, Text: "Invoice"},
		{Type: BlockTypeLine, Text: "Total: $50"},
	}
	if got := JoinLines(blocks); got != "Invoice #123\nTotal: $50" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := JoinLines(nil); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
	if got := JoinLines([]Block{{Type: BlockTypeWord, Text: "x"}}); got != "" {
		t.Fatalf("expected empty text without LINE blocks, got %q", got)
	}
}

func TestJoinBlocksSelectsQueryResults(t *testing.T) {
	blocks := []Block{
		{Type: BlockTypeLine, Text: "Total: $50"},
		{Type: BlockTypeQueryResult, Text: "$50"},
		{Type: BlockTypeQueryResult, Text: "2024-01-31"},
	}
	if got := JoinBlocks(blocks, BlockTypeQueryResult); got != "$50\n2024-01-31" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestLocalExtractsPlainText(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	if _, err := store.Put(ctx, "1-notes.txt", "text/plain", -1, strings.NewReader("Invoice #123\r\n\n  Total: $50  \n")); err != nil {
		t.Fatalf("put: %v", err)
	}

	blocks, err := NewLocal(store).Extract(ctx, Ref{Key: "1-notes.txt", ContentType: "text/plain; charset=utf-8", FileName: "notes.txt"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := JoinLines(blocks); got != "Invoice #123\nTotal: $50" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestLocalExtractMissingObject(t *testing.T) {
	_, err := NewLocal(local.New(t.TempDir())).Extract(context.Background(), Ref{Key: "missing.pdf", ContentType: "application/pdf"})
	if err == nil {
		t.Fatalf("expected error for missing object")
	}
}

func TestBlocksFromBytesDocx(t *testing.T) {
	data := buildDocx(t, "Invoice #123", "Total: $50")
	blocks, err := BlocksFromBytes(context.Background(), data, "application/zip", "invoice.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	text := JoinLines(blocks)
	if !strings.Contains(text, "Invoice #123") || !strings.Contains(text, "Total: $50") {
		t.Fatalf("unexpected docx text %q", text)
	}
}

func TestBlocksFromBytesRealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = BlocksFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestNormalizeMimeTypeFallsBackToExtension(t *testing.T) {
	tests := []struct {
		contentType string
		fileName    string
		want        string
	}{
		{"", "scan.PDF", mimePDF},
		{"application/octet-stream", "letter.docx", mimeDOCX},
		{"text/plain; charset=utf-8", "a.bin", "text/plain"},
		{"image/png", "scan.pdf", "image/png"},
	}
	for _, tt := range tests {
		if got := normalizeMimeType(tt.contentType, tt.fileName, nil); got != tt.want {
			t.Fatalf("normalizeMimeType(%q, %q) = %q, want %q", tt.contentType, tt.fileName, got, tt.want)
		}
	}
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
	}
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)
	files["word/document.xml"] = body.String()

	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
