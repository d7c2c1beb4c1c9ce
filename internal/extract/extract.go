package extract

import (
	"context"
	"errors"
	"strings"
)

// Block types. Only LINE blocks contribute to extracted text.
const (
	BlockTypePage        = "PAGE"
	BlockTypeLine        = "LINE"
	BlockTypeWord        = "WORD"
	BlockTypeQueryResult = "QUERY_RESULT"
)

// MaxQueryChars bounds a Querier question.
const MaxQueryChars = 200

// ErrUnsupportedType is returned for content types no extractor understands.
var ErrUnsupportedType = errors.New("unsupported content type")

// Block is one unit of OCR or parser output.
type Block struct {
	Type string
	Text string
}

// Ref points the extractor at a stored object.
type Ref struct {
	Key         string
	ContentType string
	FileName    string
}

// Extractor turns a stored object into typed text blocks.
type Extractor interface {
	Extract(ctx context.Context, ref Ref) ([]Block, error)
}

// Querier answers a natural-language question against a stored object.
// It returns QUERY_RESULT blocks; an empty slice means no answer was found.
type Querier interface {
	Query(ctx context.Context, ref Ref, question string) ([]Block, error)
}

// JoinLines concatenates the text of LINE blocks, in order, separated by "\n".
// It returns "" when there are none.
func JoinLines(blocks []Block) string {
	return JoinBlocks(blocks, BlockTypeLine)
}

// JoinBlocks concatenates the text of blocks of type typ, in order, separated by "\n".
func JoinBlocks(blocks []Block, typ string) string {
	var b strings.Builder
	first := true
	for _, blk := range blocks {
		if blk.Type != typ {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		b.WriteString(blk.Text)
		first = false
	}
	return b.String()
}

// LinesFromText splits plain text into LINE blocks, dropping blank lines.
func LinesFromText(text string) []Block {
	var out []Block
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, Block{Type: BlockTypeLine, Text: line})
	}
	return out
}
