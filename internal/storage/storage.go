// Package storage keeps uploaded document bytes outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Blob is the object store documents are written to.
type Blob interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	// URL returns a time-limited download link that names the file filename.
	URL(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// NewKey builds a unique object key grouped by owner, keeping the file extension.
func NewKey(ownerType string, ownerID uint, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%d/%s%s", ownerType, ownerID, uuid.NewString(), ext)
}

// ContentType guesses a MIME type from the extension when the client sent none.
func ContentType(filename, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	}
	return "application/octet-stream"
}
