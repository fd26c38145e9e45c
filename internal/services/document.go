package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/storage"
)

const (
	// MaxDocumentSize is the upload limit for a single document.
	MaxDocumentSize = 10 << 20
	// DownloadURLTTL is how long a presigned download link stays valid.
	DownloadURLTTL = 15 * time.Minute
)

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type DocumentService struct {
	db    *gorm.DB
	blobs storage.Blob
}

func NewDocumentService(db *gorm.DB, blobs storage.Blob) *DocumentService {
	return &DocumentService{db: db, blobs: blobs}
}

// checkOwner applies the parent's access rule: requests are open to their
// client and admins, labor requests to their author and assignee.
func (s *DocumentService) checkOwner(tx *gorm.DB, actor Actor, ownerType string, ownerID uint) error {
	switch ownerType {
	case models.DocumentOwnerRequest:
		r, err := first[models.Request](tx, ownerID, "request")
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && r.ClientID != actor.ID {
			return apperr.Forbidden("not your request")
		}
	case models.DocumentOwnerLaborRequest:
		lr, err := first[models.LaborRequest](tx, ownerID, "labor request")
		if err != nil {
			return err
		}
		if lr.AdminID != actor.ID && lr.ContractorID != actor.ID {
			return apperr.Forbidden("not your labor request")
		}
	default:
		return apperr.Invalid("ownerType", "invalid_choice")
	}
	return nil
}

// Upload stores the bytes then the row. If the row cannot be written the blob
// is removed again.
func (s *DocumentService) Upload(ctx context.Context, actor Actor, ownerType string, ownerID uint, up Upload) (*models.Document, error) {
	name := filepath.Base(strings.TrimSpace(up.Filename))
	switch {
	case name == "" || name == "." || name == "/":
		return nil, apperr.Invalid("file", "required")
	case up.Size > MaxDocumentSize:
		return nil, apperr.Invalid("file", "too_large")
	case up.Size <= 0:
		return nil, apperr.Invalid("file", "empty")
	}
	db := s.db.WithContext(ctx)
	if err := s.checkOwner(db, actor, ownerType, ownerID); err != nil {
		return nil, err
	}

	doc := models.Document{
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		Name:        name,
		ObjectKey:   storage.NewKey(ownerType, ownerID, name),
		ContentType: storage.ContentType(name, up.ContentType),
		Size:        up.Size,
		UploadedBy:  actor.ID,
	}
	if err := s.blobs.Put(ctx, doc.ObjectKey, io.LimitReader(up.Body, MaxDocumentSize), up.Size, doc.ContentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if err := db.Create(&doc).Error; err != nil {
		if rmErr := s.blobs.Remove(ctx, doc.ObjectKey); rmErr != nil {
			log.WithError(rmErr).WithField("key", doc.ObjectKey).Warn("remove orphaned document blob")
		}
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentService) List(ctx context.Context, actor Actor, ownerType string, ownerID uint) ([]models.Document, error) {
	db := s.db.WithContext(ctx)
	if err := s.checkOwner(db, actor, ownerType, ownerID); err != nil {
		return nil, err
	}
	var out []models.Document
	err := db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).Order("created_at DESC, id DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// DownloadURL returns a short-lived link to the document's bytes.
func (s *DocumentService) DownloadURL(ctx context.Context, actor Actor, id uint) (*models.Document, string, error) {
	db := s.db.WithContext(ctx)
	doc, err := first[models.Document](db, id, "document")
	if err != nil {
		return nil, "", err
	}
	if err := s.checkOwner(db, actor, doc.OwnerType, doc.OwnerID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, "", apperr.NotFound("document")
		}
		return nil, "", err
	}
	url, err := s.blobs.URL(ctx, doc.ObjectKey, doc.Name, DownloadURLTTL)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", apperr.NotFound("document")
	}
	if err != nil {
		return nil, "", fmt.Errorf("sign document url: %w", err)
	}
	return doc, url, nil
}
