package textract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/extract"
	"docflow-backend/internal/shared/storage/object"
	"docflow-backend/internal/shared/storage/object/local"
)

type fakeAnalyzer struct {
	in  *textract.AnalyzeDocumentInput
	out *textract.AnalyzeDocumentOutput
	err error
}

func (f *fakeAnalyzer) AnalyzeDocument(ctx context.Context, in *textract.AnalyzeDocumentInput, _ ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error) {
	f.in = in
	return f.out, f.err
}

type locatingStore struct {
	object.ObjectStore
}

func (locatingStore) Locate(key string) (string, string) { return "docs-bucket", "uploads/" + key }

func invoiceOutput() *textract.AnalyzeDocumentOutput {
	return &textract.AnalyzeDocumentOutput{Blocks: []types.Block{
		{BlockType: types.BlockTypePage},
		{BlockType: types.BlockTypeLine, Text: aws.String("Invoice #123")},
		{BlockType: types.BlockTypeWord, Text: aws.String("Invoice")},
		{BlockType: types.BlockTypeLine, Text: aws.String("Total: $50")},
	}}
}

func TestExtractReferencesS3ObjectInPlace(t *testing.T) {
	fake := &fakeAnalyzer{out: invoiceOutput()}
	e := newExtractor(fake, locatingStore{})

	blocks, err := e.Extract(context.Background(), extract.Ref{Key: "1-invoice.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Invoice #123\nTotal: $50", extract.JoinLines(blocks))

	require.NotNil(t, fake.in.Document.S3Object)
	assert.Equal(t, "docs-bucket", aws.ToString(fake.in.Document.S3Object.Bucket))
	assert.Equal(t, "uploads/1-invoice.pdf", aws.ToString(fake.in.Document.S3Object.Name))
	assert.ElementsMatch(t, []types.FeatureType{types.FeatureTypeTables, types.FeatureTypeForms}, fake.in.FeatureTypes)
}

func TestExtractSendsBytesForLocalStore(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	_, err := store.Put(ctx, "1-scan.png", "image/png", -1, strings.NewReader("png-bytes"))
	require.NoError(t, err)

	fake := &fakeAnalyzer{out: &textract.AnalyzeDocumentOutput{}}
	blocks, err := newExtractor(fake, store).Extract(ctx, extract.Ref{Key: "1-scan.png"})
	require.NoError(t, err)
	assert.Empty(t, extract.JoinLines(blocks))
	assert.Equal(t, []byte("png-bytes"), fake.in.Document.Bytes)
	assert.Nil(t, fake.in.Document.S3Object)
}

func TestExtractPropagatesServiceError(t *testing.T) {
	fake := &fakeAnalyzer{err: errors.New("throttled")}
	_, err := newExtractor(fake, locatingStore{}).Extract(context.Background(), extract.Ref{Key: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestQuerySendsQueriesConfigAndReturnsResults(t *testing.T) {
	fake := &fakeAnalyzer{out: &textract.AnalyzeDocumentOutput{Blocks: []types.Block{
		{BlockType: types.BlockTypePage},
		{BlockType: types.BlockTypeLine, Text: aws.String("Total: $50")},
		{BlockType: types.BlockTypeQuery, Query: &types.Query{Text: aws.String("What is the total?")}},
		{BlockType: types.BlockTypeQueryResult, Text: aws.String("$50")},
		{BlockType: types.BlockTypeQueryResult},
	}}}
	e := newExtractor(fake, locatingStore{})

	blocks, err := e.Query(context.Background(), extract.Ref{Key: "1-invoice.pdf"}, "  What is the total?  ")
	require.NoError(t, err)
	assert.Equal(t, []extract.Block{{Type: extract.BlockTypeQueryResult, Text: "$50"}}, blocks)

	assert.Equal(t, []types.FeatureType{types.FeatureTypeQueries}, fake.in.FeatureTypes)
	require.NotNil(t, fake.in.QueriesConfig)
	require.Len(t, fake.in.QueriesConfig.Queries, 1)
	q := fake.in.QueriesConfig.Queries[0]
	assert.Equal(t, "What is the total?", aws.ToString(q.Text))
	assert.Equal(t, "custom_query", aws.ToString(q.Alias))
	assert.Equal(t, []string{"1"}, q.Pages)
	assert.Equal(t, "uploads/1-invoice.pdf", aws.ToString(fake.in.Document.S3Object.Name))
}

func TestQueryWithoutResultsReturnsNoBlocks(t *testing.T) {
	fake := &fakeAnalyzer{out: &textract.AnalyzeDocumentOutput{Blocks: []types.Block{
		{BlockType: types.BlockTypeLine, Text: aws.String("Hello")},
	}}}
	blocks, err := newExtractor(fake, locatingStore{}).Query(context.Background(), extract.Ref{Key: "k"}, "Who signed?")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestQueryRejectsBadQuestions(t *testing.T) {
	fake := &fakeAnalyzer{}
	e := newExtractor(fake, locatingStore{})

	_, err := e.Query(context.Background(), extract.Ref{Key: "k"}, "   ")
	require.Error(t, err)
	_, err = e.Query(context.Background(), extract.Ref{Key: "k"}, strings.Repeat("q", extract.MaxQueryChars+1))
	require.Error(t, err)
	assert.Nil(t, fake.in, "no request should reach the service")
}
