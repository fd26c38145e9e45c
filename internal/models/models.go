// Package models holds the gorm entities of the procurement domain.
package models

// All returns every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Project{},
		&Request{},
		&Quote{},
		&QuoteItem{},
		&Comment{},
		&LaborRequest{},
		&LaborRequestItem{},
		&ContractorRequest{},
		&ContractorInvoice{},
		&Service{},
		&PricingTemplate{},
		&Notification{},
		&ContactSubmission{},
		&Document{},
	}
}
