package models

import "time"

// LaborStatus is the state of a labor request.
type LaborStatus string

const (
	LaborPending  LaborStatus = "pending"
	LaborQuoted   LaborStatus = "quoted"
	LaborApproved LaborStatus = "approved"
	LaborRejected LaborStatus = "rejected"
)

// LaborProgress tracks an approved labor request. Values only move forward.
type LaborProgress string

const (
	ProgressNone              LaborProgress = ""
	ProgressQuoteSent         LaborProgress = "quote_sent"
	ProgressQuoteAccepted     LaborProgress = "quote_accepted"
	ProgressTimelineDeveloped LaborProgress = "timeline_developed"
	ProgressProjectStarted    LaborProgress = "project_started"
	ProgressProjectCompleted  LaborProgress = "project_completed"
)

var progressOrder = []LaborProgress{
	ProgressNone,
	ProgressQuoteSent,
	ProgressQuoteAccepted,
	ProgressTimelineDeveloped,
	ProgressProjectStarted,
	ProgressProjectCompleted,
}

// Rank is the position of p in the progress sequence, or -1 if unknown.
func (p LaborProgress) Rank() int {
	for i, v := range progressOrder {
		if v == p {
			return i
		}
	}
	return -1
}

// LaborRequest is an admin's ask to a contractor for a sub-estimate.
type LaborRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	AdminID      uint     `gorm:"index;not null" json:"adminId"`
	ContractorID uint     `gorm:"index;not null" json:"contractorId"`
	Contractor   *User    `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
	RequestID    *uint    `gorm:"index" json:"requestId,omitempty"`
	Request      *Request `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	Message      string   `gorm:"type:text" json:"message"`

	Status   LaborStatus   `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Progress LaborProgress `gorm:"size:30" json:"progress,omitempty"`
	Version  int           `gorm:"not null;default:1" json:"version"`

	Subtotal          float64    `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	Discount          float64    `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	QuotePrice        float64    `gorm:"type:decimal(12,2);not null;default:0" json:"quotePrice"`
	DepositRequired   bool       `gorm:"not null;default:false" json:"depositRequired"`
	DepositPercentage float64    `gorm:"type:decimal(5,2);not null;default:0" json:"depositPercentage"`
	DepositAmount     float64    `gorm:"type:decimal(12,2);not null;default:0" json:"depositAmount"`
	ContractorNotes   string     `gorm:"type:text" json:"contractorNotes,omitempty"`
	SubmittedAt       *time.Time `json:"submittedAt,omitempty"`

	Items []LaborRequestItem `gorm:"foreignKey:LaborRequestID" json:"items"`
}

// GetUserID implements Ownable: the assigned contractor.
func (l *LaborRequest) GetUserID() uint { return l.ContractorID }

// CanSubmit: estimates may be (re)submitted until the admin decides.
func (l *LaborRequest) CanSubmit() bool {
	return l.Status == LaborPending || l.Status == LaborQuoted
}

// LaborRequestItem is a line of a contractor estimate.
type LaborRequestItem struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	LaborRequestID uint `gorm:"index;not null" json:"laborRequestId"`

	Position    int      `gorm:"not null;default:0" json:"position"`
	ServiceName string   `gorm:"size:255" json:"serviceName"`
	Description string   `gorm:"size:1000" json:"description"`
	Unit        ItemUnit `gorm:"size:10;not null;default:'flat'" json:"unit"`
	UnitPrice   float64  `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Quantity    float64  `gorm:"type:decimal(10,3);not null" json:"quantity"`
	Price       float64  `gorm:"type:decimal(12,2);not null" json:"price"`
	Total       float64  `gorm:"type:decimal(12,2);not null" json:"total"`
}

// GetAuthorID is the admin who issued the request.
func (l *LaborRequest) GetAuthorID() uint { return l.AdminID }
