package domain

import (
	"fmt"
	"time"
)

// Document is the relational metadata record for an ingested upload.
// The extracted chunks themselves are never persisted relationally; only
// their vectors and payloads live in the owner's tenant namespace.
type Document struct {
	ID           string
	UserID       string
	Filename     string
	OriginalSize int64
	ChunkCount   int
	ContentHash  string
	UploadedAt   time.Time
}

// NewDocument creates a new Document instance
func NewDocument(id, userID, filename, contentHash string, originalSize int64, chunkCount int, uploadedAt time.Time) *Document {
	return &Document{
		ID:           id,
		UserID:       userID,
		Filename:     filename,
		OriginalSize: originalSize,
		ChunkCount:   chunkCount,
		ContentHash:  contentHash,
		UploadedAt:   uploadedAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.UserID == "" {
		return fmt.Errorf("document UserID is required")
	}
	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}
	if d.ContentHash == "" {
		return fmt.Errorf("document ContentHash is required")
	}
	if d.OriginalSize < 0 {
		return fmt.Errorf("document OriginalSize cannot be negative")
	}
	if d.ChunkCount < 0 {
		return fmt.Errorf("document ChunkCount cannot be negative")
	}
	return nil
}
