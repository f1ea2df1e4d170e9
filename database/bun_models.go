package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunDocument represents the documents table for Bun ORM
type BunDocument struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID           int       `bun:"id,pk,autoincrement"`
	Name         string    `bun:"name,notnull"`
	Path         string    `bun:"path,notnull,unique"`
	Hash         string    `bun:"hash,notnull"`
	ULID         string    `bun:"ulid,notnull,unique"` // Stored as string in DB
	DocumentType string    `bun:"document_type,notnull"`
	PageCount    int       `bun:"page_count,notnull,default:0"`
	AddedTime    time.Time `bun:"added_time,notnull,default:current_timestamp"`
	LastViewed   time.Time `bun:"last_viewed,notnull,default:current_timestamp"`
	URL          string    `bun:"url,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToDocument converts BunDocument to Document
func (bd *BunDocument) ToDocument() (*Document, error) {
	parsedULID, err := ulid.Parse(bd.ULID)
	if err != nil {
		return nil, err
	}

	return &Document{
		ID:           bd.ID,
		Name:         bd.Name,
		Path:         bd.Path,
		Hash:         bd.Hash,
		ULID:         parsedULID,
		DocumentType: bd.DocumentType,
		PageCount:    bd.PageCount,
		AddedTime:    bd.AddedTime,
		LastViewed:   bd.LastViewed,
		URL:          bd.URL,
	}, nil
}

// FromDocument converts Document to BunDocument
func FromDocument(doc *Document) *BunDocument {
	return &BunDocument{
		ID:           doc.ID,
		Name:         doc.Name,
		Path:         doc.Path,
		Hash:         doc.Hash,
		ULID:         doc.ULID.String(),
		DocumentType: doc.DocumentType,
		PageCount:    doc.PageCount,
		AddedTime:    doc.AddedTime,
		LastViewed:   doc.LastViewed,
		URL:          doc.URL,
	}
}
