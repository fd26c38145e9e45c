package models

import "time"

// LinkStatus is the state of a contractor link request.
type LinkStatus string

const (
	LinkPending  LinkStatus = "pending"
	LinkApproved LinkStatus = "approved"
	LinkRejected LinkStatus = "rejected"
)

// ContractorRequest is a client's ask to be managed by an admin as a contractor.
type ContractorRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ClientID  uint       `gorm:"index;not null" json:"clientId"`
	Client    *User      `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	AdminID   uint       `gorm:"index;not null" json:"adminId"`
	Message   string     `gorm:"type:text" json:"message,omitempty"`
	Status    LinkStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	DecidedAt *time.Time `json:"decidedAt,omitempty"`
}

// InvoiceStatus is the state of a contractor invoice.
type InvoiceStatus string

const (
	InvoicePending  InvoiceStatus = "pending"
	InvoiceApproved InvoiceStatus = "approved"
	InvoicePaid     InvoiceStatus = "paid"
	InvoiceRejected InvoiceStatus = "rejected"
)

// ContractorInvoice is an invoice a contractor submits to their admin.
type ContractorInvoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ContractorID uint          `gorm:"index;not null" json:"contractorId"`
	Contractor   *User         `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	AdminID      uint          `gorm:"index;not null" json:"adminId"`
	RequestID    *uint         `gorm:"index" json:"requestId,omitempty"`
	ClientID     *uint         `gorm:"index" json:"clientId,omitempty"`
	ClientEmail  string        `gorm:"size:255" json:"clientEmail,omitempty"`
	ProjectName  string        `gorm:"size:255;not null" json:"projectName"`
	Description  string        `gorm:"type:text" json:"description"`
	Amount       float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status       InvoiceStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	PaidAt       *time.Time    `json:"paidAt,omitempty"`
}

// CanMoveTo encodes pending→approved|rejected and approved→paid.
func (i *ContractorInvoice) CanMoveTo(next InvoiceStatus) bool {
	switch i.Status {
	case InvoicePending:
		return next == InvoiceApproved || next == InvoiceRejected
	case InvoiceApproved:
		return next == InvoicePaid
	}
	return false
}
