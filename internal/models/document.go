package models

import "time"

// Document owner types.
const (
	DocumentOwnerRequest      = "request"
	DocumentOwnerLaborRequest = "labor_request"
)

// Document is an uploaded file attached to exactly one parent row.
// The bytes live in object storage under ObjectKey.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	OwnerType   string `gorm:"size:30;not null;index:idx_documents_owner" json:"ownerType"`
	OwnerID     uint   `gorm:"not null;index:idx_documents_owner" json:"ownerId"`
	Name        string `gorm:"size:255;not null" json:"name"`
	ObjectKey   string `gorm:"size:500;not null;uniqueIndex" json:"-"`
	ContentType string `gorm:"size:100" json:"contentType"`
	Size        int64  `json:"size"`
	UploadedBy  uint   `gorm:"index;not null" json:"uploadedBy"`
}
