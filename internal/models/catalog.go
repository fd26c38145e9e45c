package models

import (
	"time"

	"gorm.io/datatypes"
)

// Service is a catalog entry admins pick from when building quotes.
type Service struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name        string   `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string   `gorm:"size:1000" json:"description,omitempty"`
	Unit        ItemUnit `gorm:"size:10;not null;default:'flat'" json:"unit"`
	UnitPrice   float64  `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Active      bool     `gorm:"not null;default:true" json:"active"`
}

// TemplateItem is one line stored inside a PricingTemplate.
type TemplateItem struct {
	ServiceName string   `json:"serviceName"`
	Description string   `json:"description"`
	Unit        ItemUnit `json:"unit"`
	UnitPrice   float64  `json:"unitPrice"`
	Quantity    float64  `json:"quantity"`
}

// PricingTemplate is a reusable set of quote lines owned by an admin.
type PricingTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	AdminID uint           `gorm:"index;not null" json:"adminId"`
	Name    string         `gorm:"size:255;not null" json:"name"`
	Items   datatypes.JSON `json:"items"`
}
