package models

import "time"

// Project groups a client's requests under a site or job name.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ClientID uint   `gorm:"index;not null" json:"clientId"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Address  string `gorm:"size:500" json:"address,omitempty"`
}

// RequestStatus tracks a client request from submission to completion.
type RequestStatus string

const (
	RequestPending      RequestStatus = "pending"
	RequestQuoted       RequestStatus = "quoted"
	RequestApproved     RequestStatus = "approved"
	RequestContractSent RequestStatus = "contract_sent"
	RequestCompleted    RequestStatus = "completed"
)

// Request is a client's project ask.
type Request struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ClientID    uint          `gorm:"index;not null" json:"clientId"`
	Client      *User         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID   *uint         `gorm:"index" json:"projectId,omitempty"`
	ProjectName string        `gorm:"size:255;not null" json:"projectName"`
	Description string        `gorm:"type:text" json:"description"`
	Status      RequestStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
}

// GetUserID implements Ownable.
func (r *Request) GetUserID() uint { return r.ClientID }

// CanDelete: only pending requests may be deleted, so no quote is orphaned.
func (r *Request) CanDelete() bool { return r.Status == RequestPending }

// NextAdminStatus is the only status an admin may move the request to by hand.
// Earlier steps are driven by quotes.
func (r *Request) NextAdminStatus() (RequestStatus, bool) {
	switch r.Status {
	case RequestApproved:
		return RequestContractSent, true
	case RequestContractSent:
		return RequestCompleted, true
	}
	return "", false
}
