package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types.
const (
	NotifyQuoteSent          = "quote_sent"
	NotifyQuoteRevised       = "quote_revised"
	NotifyQuoteApproved      = "quote_approved"
	NotifyQuoteComment       = "quote_comment"
	NotifyLaborAssigned      = "labor_request_assigned"
	NotifyEstimateSubmitted  = "estimate_submitted"
	NotifyEstimateApproved   = "estimate_approved"
	NotifyEstimateRejected   = "estimate_rejected"
	NotifyProgressUpdated    = "progress_updated"
	NotifyInvoiceSubmitted   = "invoice_submitted"
	NotifyInvoiceUpdated     = "invoice_updated"
	NotifyContractorApproved = "contractor_link_approved"
	NotifyContractorRejected = "contractor_link_rejected"
	NotifyContractorLink     = "contractor_link_requested"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	UserID  uint           `gorm:"index;not null" json:"userId"`
	Type    string         `gorm:"size:50;not null" json:"type"`
	Title   string         `gorm:"size:255;not null" json:"title"`
	Message string         `gorm:"type:text" json:"message"`
	Link    string         `gorm:"size:500" json:"link,omitempty"`
	Data    datatypes.JSON `json:"data,omitempty"`
	Read    bool           `gorm:"not null;default:false;index" json:"read"`
}

// ContactSubmission is a message sent from the public contact form.
type ContactSubmission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Name    string `gorm:"size:255;not null" json:"name"`
	Email   string `gorm:"size:255;not null" json:"email"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Message string `gorm:"type:text;not null" json:"message"`
}
