package ingest

import (
	"context"
	"fmt"
	"sync"

	"docflow-backend/internal/documents"
)

// BatchItem is the outcome for one file of IngestBatch.
type BatchItem struct {
	FileName string
	Document documents.Document
	Err      error
}

// IngestBatch categorizes every file on the batch pool and files each stored
// object under its category. A failing file never aborts its siblings.
// Results keep the order of files.
func (p *Pipeline) IngestBatch(ctx context.Context, files []*UploadedFile, ownerID string) ([]BatchItem, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", ErrInvalidInput)
	}
	if err := p.validateOwner(ctx, ownerID); err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		if file != nil {
			items[i].FileName = file.Name
		}
		wg.Add(1)
		err := p.batchPool.Submit(func() {
			defer wg.Done()
			doc, err := p.IngestWith(ctx, file, ownerID, CategorizeOptions())
			items[i].Document = doc
			items[i].Err = err
		})
		if err != nil {
			wg.Done()
			items[i].Err = fmt.Errorf("schedule %s: %w", items[i].FileName, err)
		}
	}
	wg.Wait()
	return items, nil
}
