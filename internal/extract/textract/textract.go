// Package textract extracts text with AWS Textract AnalyzeDocument.
package textract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"docflow-backend/internal/extract"
	"docflow-backend/internal/shared/storage/object"
)

// Synchronous AnalyzeDocument accepts at most 10MB of inline bytes.
const maxInlineBytes = 10 << 20

const queryAlias = "custom_query"

type analyzer interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// Extractor runs AnalyzeDocument with the TABLES and FORMS features.
type Extractor struct {
	client analyzer
	store  object.ObjectStore
}

// New builds an extractor using the default AWS credential chain.
func New(ctx context.Context, region string, store object.ObjectStore) (*Extractor, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newExtractor(textract.NewFromConfig(cfg), store), nil
}

func newExtractor(client analyzer, store object.ObjectStore) *Extractor {
	return &Extractor{client: client, store: store}
}

// Extract analyzes the object. S3-backed stores are referenced in place; other
// stores are read and sent inline.
func (e *Extractor) Extract(ctx context.Context, ref extract.Ref) ([]extract.Block, error) {
	doc, err := e.document(ctx, ref.Key)
	if err != nil {
		return nil, err
	}
	out, err := e.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     doc,
		FeatureTypes: []types.FeatureType{types.FeatureTypeTables, types.FeatureTypeForms},
	})
	if err != nil {
		return nil, fmt.Errorf("textract analyze key=%s: %w", ref.Key, err)
	}
	blocks := make([]extract.Block, 0, len(out.Blocks))
	for _, b := range out.Blocks {
		blocks = append(blocks, extract.Block{
			Type: string(b.BlockType),
			Text: aws.ToString(b.Text),
		})
	}
	return blocks, nil
}

// Query runs AnalyzeDocument with the QUERIES feature against the first page
// and returns the QUERY_RESULT blocks that carry text.
func (e *Extractor) Query(ctx context.Context, ref extract.Ref, question string) ([]extract.Block, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("textract query: question is required")
	}
	if utf8.RuneCountInString(question) > extract.MaxQueryChars {
		return nil, fmt.Errorf("textract query: question exceeds %d characters", extract.MaxQueryChars)
	}
	doc, err := e.document(ctx, ref.Key)
	if err != nil {
		return nil, err
	}
	out, err := e.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     doc,
		FeatureTypes: []types.FeatureType{types.FeatureTypeQueries},
		QueriesConfig: &types.QueriesConfig{
			Queries: []types.Query{{
				Text:  aws.String(question),
				Alias: aws.String(queryAlias),
				Pages: []string{"1"},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("textract query key=%s: %w", ref.Key, err)
	}
	var blocks []extract.Block
	for _, b := range out.Blocks {
		if b.BlockType != types.BlockTypeQueryResult || aws.ToString(b.Text) == "" {
			continue
		}
		blocks = append(blocks, extract.Block{
			Type: extract.BlockTypeQueryResult,
			Text: aws.ToString(b.Text),
		})
	}
	return blocks, nil
}

func (e *Extractor) document(ctx context.Context, key string) (*types.Document, error) {
	if loc, ok := e.store.(object.Locator); ok {
		bucket, name := loc.Locate(key)
		return &types.Document{S3Object: &types.S3Object{
			Bucket: aws.String(bucket),
			Name:   aws.String(name),
		}}, nil
	}
	body, err := e.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("textract open key=%s: %w", key, err)
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, maxInlineBytes+1))
	if err != nil {
		return nil, fmt.Errorf("textract read key=%s: %w", key, err)
	}
	if len(data) > maxInlineBytes {
		return nil, fmt.Errorf("textract key=%s: object exceeds inline limit", key)
	}
	return &types.Document{Bytes: data}, nil
}

var (
	_ extract.Extractor = (*Extractor)(nil)
	_ extract.Querier   = (*Extractor)(nil)
)
