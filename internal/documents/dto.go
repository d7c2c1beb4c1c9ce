package documents

import (
	"time"

	"docflow-backend/internal/users"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	FileName         string    `json:"fileName"`
	FileSize         int64     `json:"fileSize"`
	FileType         string    `json:"fileType"`
	StorageProvider  string    `json:"storageProvider"`
	StorageKey       string    `json:"storageKey"`
	ExtractedText    string    `json:"extractedText,omitempty"`
	Category         string    `json:"category"`
	SubCategory      string    `json:"subCategory"`
	Summary          string    `json:"summary"`
	SuggestedQueries []string  `json:"suggestedQueries"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ListingResponse is one entry of GET /documents/all.
type ListingResponse struct {
	ID          string       `json:"id"`
	FileName    string       `json:"fileName"`
	FileSize    int64        `json:"fileSize"`
	FileType    string       `json:"fileType"`
	Category    string       `json:"category"`
	SubCategory string       `json:"subCategory"`
	CreatedAt   time.Time    `json:"createdAt"`
	Owner       *users.Owner `json:"owner,omitempty"`
}

// ToResponse renders doc; includeText controls whether the extracted text is sent.
func ToResponse(doc Document, includeText bool) DocumentResponse {
	queries := doc.SuggestedQueries
	if queries == nil {
		queries = []string{}
	}
	resp := DocumentResponse{
		ID:               doc.ID,
		UserID:           doc.UserID,
		FileName:         doc.FileName,
		FileSize:         doc.FileSize,
		FileType:         doc.FileType,
		StorageProvider:  doc.StorageProvider,
		StorageKey:       doc.StorageKey,
		Category:         doc.Category,
		SubCategory:      doc.SubCategory,
		Summary:          doc.Summary,
		SuggestedQueries: queries,
		CreatedAt:        doc.CreatedAt,
	}
	if includeText {
		resp.ExtractedText = doc.ExtractedText
	}
	return resp
}

func toListingResponse(item Listing) ListingResponse {
	return ListingResponse{
		ID:          item.ID,
		FileName:    item.FileName,
		FileSize:    item.FileSize,
		FileType:    item.FileType,
		Category:    item.Category,
		SubCategory: item.SubCategory,
		CreatedAt:   item.CreatedAt,
		Owner:       item.Owner,
	}
}
