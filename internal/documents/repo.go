package documents

import "context"

// DocumentsRepo defines persistence operations for documents.
type DocumentsRepo interface {
	// Save stores doc, assigning ID when empty. The returned CreatedAt never
	// precedes that of an earlier Save.
	Save(ctx context.Context, doc Document) (Document, error)
	// FindMostRecent returns the newest document across all owners.
	FindMostRecent(ctx context.Context) (Document, error)
	// FindAll returns every document, newest first.
	FindAll(ctx context.Context, projection Projection) ([]Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
}
