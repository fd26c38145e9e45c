package models

import "time"

// QuoteStatus represents the lifecycle of a quote.
type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "draft"
	QuoteSent     QuoteStatus = "sent"
	QuoteApproved QuoteStatus = "approved"
	QuoteRevised  QuoteStatus = "revised"
)

// ItemUnit is how a line is priced.
type ItemUnit string

const (
	UnitFlat   ItemUnit = "flat"
	UnitHourly ItemUnit = "hourly"
)

// Quote is an admin-authored priced proposal, either linked to a Request or
// standalone. Version is bumped on every write and used for compare-and-swap.
type Quote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	AdminID   uint     `gorm:"index;not null" json:"adminId"`
	RequestID *uint    `gorm:"index" json:"requestId,omitempty"`
	Request   *Request `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	ClientID  *uint    `gorm:"index" json:"clientId,omitempty"`
	Client    *User    `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	ProjectName string `gorm:"size:255" json:"projectName"`
	Notes       string `gorm:"type:text" json:"notes,omitempty"`

	TaxLocation string  `gorm:"size:100" json:"taxLocation,omitempty"`
	NetPrice    float64 `gorm:"type:decimal(12,2);not null;default:0" json:"netPrice"`
	TaxRate     float64 `gorm:"type:decimal(8,6);not null;default:0" json:"taxRate"`
	TaxAmount   float64 `gorm:"type:decimal(12,2);not null;default:0" json:"taxAmount"`
	DeliveryFee float64 `gorm:"type:decimal(12,2);not null;default:0" json:"deliveryFee"`
	TotalPrice  float64 `gorm:"type:decimal(12,2);not null;default:0" json:"totalPrice"`

	Status     QuoteStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	Version    int         `gorm:"not null;default:1" json:"version"`
	SentAt     *time.Time  `json:"sentAt,omitempty"`
	ApprovedAt *time.Time  `json:"approvedAt,omitempty"`

	Items    []QuoteItem `gorm:"foreignKey:QuoteID" json:"quoteItems"`
	Comments []Comment   `gorm:"foreignKey:QuoteID" json:"comments,omitempty"`
}

// GetUserID implements Ownable: the owning client, 0 when unresolved.
func (q *Quote) GetUserID() uint {
	if q.ClientID == nil {
		return 0
	}
	return *q.ClientID
}

func (q *Quote) IsDraft() bool { return q.Status == QuoteDraft }

// CanApprove: clients approve sent or revised quotes only.
func (q *Quote) CanApprove() bool {
	return q.Status == QuoteSent || q.Status == QuoteRevised
}

// CanTransition reports whether an admin save may move the quote from its
// current status to next. Drafts may stay drafts or be sent; a sent or revised
// quote may only be revised; approved quotes are frozen.
func (q *Quote) CanTransition(next QuoteStatus) bool {
	switch q.Status {
	case QuoteDraft:
		return next == QuoteDraft || next == QuoteSent
	case QuoteSent, QuoteRevised:
		return next == QuoteRevised
	}
	return false
}

// QuoteItem is one priced line. Price = round2(UnitPrice × Quantity).
type QuoteItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	QuoteID uint `gorm:"index;not null" json:"quoteId"`

	Position    int      `gorm:"not null;default:0" json:"position"`
	ServiceID   *uint    `gorm:"index" json:"serviceId,omitempty"`
	ServiceName string   `gorm:"size:255" json:"serviceName"`
	Description string   `gorm:"size:1000" json:"description"`
	Unit        ItemUnit `gorm:"size:10;not null;default:'flat'" json:"unit"`
	UnitPrice   float64  `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Quantity    float64  `gorm:"type:decimal(10,3);not null" json:"quantity"`
	Price       float64  `gorm:"type:decimal(12,2);not null" json:"price"`
}

// Comment is a note left on a quote by its client or an admin.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	QuoteID uint   `gorm:"index;not null" json:"quoteId"`
	UserID  uint   `gorm:"index;not null" json:"userId"`
	Author  *User  `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Body    string `gorm:"type:text;not null" json:"body"`
}

func (c *Comment) GetUserID() uint { return c.UserID }

// GetAuthorID is the admin who wrote the quote.
func (q *Quote) GetAuthorID() uint { return q.AdminID }
