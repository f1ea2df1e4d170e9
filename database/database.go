package database

import (
	"crypto/md5"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
)

// Document is all of the document information stored in the registry.
// Every document opened through the viewer is recorded here so clients
// can list and re-open recent documents.
type Document struct {
	ID           int
	Name         string
	Path         string // full path to the file
	Hash         string
	ULID         ulid.ULID // smaller (than hash) id that can be used in URL's
	DocumentType string    // file extension (.pdf)
	PageCount    int
	AddedTime    time.Time
	LastViewed   time.Time
	URL          string
}

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Repository defines database operations
type Repository interface {
	Close() error
	SaveDocument(doc *Document) error
	GetDocumentByID(id int) (*Document, error)
	GetDocumentByULID(ulid string) (*Document, error)
	GetDocumentByPath(path string) (*Document, error)
	GetDocumentByHash(hash string) (*Document, error)
	GetRecentDocuments(limit int) ([]Document, error)
	GetAllDocuments() ([]Document, error)
	DeleteDocument(ulid string) error
	UpdateDocumentLastViewed(ulid string, viewed time.Time) error
	UpdateDocumentPageCount(ulid string, pageCount int) error
}

// RegisterDocument records a newly opened document in the registry. If
// a document with the same content hash is already registered, the
// existing record is returned with a refreshed last-viewed time rather
// than creating a duplicate.
func RegisterDocument(filePath string, pageCount int, db Repository) (*Document, error) {
	fileHash, err := calculateHash(filePath)
	if err != nil {
		return nil, err
	}

	if existing, err := db.GetDocumentByHash(fileHash); err == nil && existing != nil {
		Logger.Info("Document already registered", "path", filePath, "existing", existing.Name)
		now := time.Now()
		if err := db.UpdateDocumentLastViewed(existing.ULID.String(), now); err != nil {
			Logger.Error("Unable to refresh last-viewed time", "ulid", existing.ULID.String(), "error", err)
		}
		existing.LastViewed = now
		if existing.PageCount != pageCount {
			if err := db.UpdateDocumentPageCount(existing.ULID.String(), pageCount); err != nil {
				Logger.Error("Unable to update page count", "ulid", existing.ULID.String(), "error", err)
			}
			existing.PageCount = pageCount
		}
		return existing, nil
	}

	newTime := time.Now()
	newULID, err := CalculateULID(newTime)
	if err != nil {
		Logger.Error("Cannot generate ULID", "filePath", filePath, "error", err)
		return nil, err
	}

	newDocument := Document{
		Name:         filepath.Base(filePath),
		Path:         filepath.ToSlash(filePath),
		Hash:         fileHash,
		ULID:         newULID,
		DocumentType: filepath.Ext(filePath),
		PageCount:    pageCount,
		AddedTime:    newTime,
		LastViewed:   newTime,
		URL:          "/api/document/" + newULID.String(),
	}
	if err := db.SaveDocument(&newDocument); err != nil {
		Logger.Error("Unable to write document to registry", "error", err)
		return nil, err
	}
	return &newDocument, nil
}

// FetchRecentDocuments fetches the documents that were viewed last
func FetchRecentDocuments(numberOf int, db Repository) ([]Document, error) {
	recentDocuments, err := db.GetRecentDocuments(numberOf)
	if err != nil {
		Logger.Error("Unable to find the latest documents", "error", err)
		return recentDocuments, err
	}
	return recentDocuments, nil
}

// FetchDocument fetches the requested document by ULID
func FetchDocument(docULIDSt string, db Repository) (Document, error) {
	foundDocument, err := db.GetDocumentByULID(docULIDSt)
	if err != nil {
		Logger.Error("Unable to find the requested document", "ulid", docULIDSt, "error", err)
		return Document{}, err
	}
	return *foundDocument, nil
}

// DeleteDocument removes the requested document from the registry
func DeleteDocument(docULIDSt string, db Repository) error {
	err := db.DeleteDocument(docULIDSt)
	if err != nil {
		Logger.Error("Unable to delete requested document", "error", err)
		return err
	}
	return nil
}

// calculate the hash of the incoming file
func calculateHash(fileName string) (string, error) {
	var fileHash string
	file, err := os.Open(fileName)
	if err != nil {
		return fileHash, err
	}
	defer file.Close()
	hash := md5.New()
	_, err = io.Copy(hash, file)
	if err != nil {
		return fileHash, err
	}
	fileHash = fmt.Sprintf("%x", hash.Sum(nil))
	return fileHash, nil
}

// CalculateULID for the incoming file
func CalculateULID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
