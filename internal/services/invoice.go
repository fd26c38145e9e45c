package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/metrics"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/notify"
	"github.com/diewo77/procurement/validation"
)

type InvoiceInput struct {
	RequestID   *uint   `json:"requestId,omitempty"`
	ClientID    *uint   `json:"clientId,omitempty"`
	ClientEmail string  `json:"clientEmail"`
	ProjectName string  `json:"projectName"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type InvoiceService struct {
	db       *gorm.DB
	notifier *notify.Notifier
}

func NewInvoiceService(db *gorm.DB, n *notify.Notifier) *InvoiceService {
	return &InvoiceService{db: db, notifier: n}
}

// Submit files an invoice with the contractor's managing admin.
func (s *InvoiceService) Submit(ctx context.Context, actor Actor, in InvoiceInput) (*models.ContractorInvoice, error) {
	v := validation.Violations{}
	validation.Required("projectName", in.ProjectName, v)
	validation.PositiveFloat("amount", in.Amount, v)
	if e := strings.TrimSpace(in.ClientEmail); e != "" {
		validation.Email("clientEmail", e, v)
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	var inv models.ContractorInvoice
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		me, err := first[models.User](tx, actor.ID, "user")
		if err != nil {
			return err
		}
		if me.ParentID == nil {
			return apperr.State("contractor is not linked to an admin")
		}
		if in.RequestID != nil {
			var n int64
			if err := tx.Model(&models.Request{}).Where("id = ?", *in.RequestID).Count(&n).Error; err != nil {
				return fmt.Errorf("check request: %w", err)
			}
			if n == 0 {
				return apperr.Invalid("requestId", "not_found")
			}
		}
		inv = models.ContractorInvoice{
			ContractorID: actor.ID,
			AdminID:      *me.ParentID,
			RequestID:    in.RequestID,
			ClientID:     in.ClientID,
			ClientEmail:  strings.ToLower(strings.TrimSpace(in.ClientEmail)),
			ProjectName:  strings.TrimSpace(in.ProjectName),
			Description:  strings.TrimSpace(in.Description),
			Amount:       in.Amount,
			Status:       models.InvoicePending,
		}
		if err := tx.Create(&inv).Error; err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		title := "New contractor invoice: " + inv.ProjectName
		if err := s.notifier.Create(tx, notify.Event{
			UserID:  inv.AdminID,
			Type:    models.NotifyInvoiceSubmitted,
			Title:   title,
			Message: fmt.Sprintf("%s submitted an invoice of %.2f.", me.Name, inv.Amount),
			Link:    "/admin/invoices",
			Data:    map[string]any{"invoiceId": inv.ID},
		}); err != nil {
			return err
		}
		*mails = append(*mails, notify.Mail{
			To:      userEmail(tx, inv.AdminID),
			Subject: title,
			Data:    map[string]any{"Title": title, "Message": fmt.Sprintf("Amount: %.2f", inv.Amount), "Link": "/admin/invoices"},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("contractor_invoice", string(models.InvoicePending))
	return &inv, nil
}

// Decide moves an invoice addressed to the admin along
// pending → approved|rejected, approved → paid.
func (s *InvoiceService) Decide(ctx context.Context, actor Actor, id uint, to models.InvoiceStatus) (*models.ContractorInvoice, error) {
	var inv *models.ContractorInvoice
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		var err error
		inv, err = first[models.ContractorInvoice](tx, id, "invoice")
		if err != nil {
			return err
		}
		if inv.AdminID != actor.ID {
			return apperr.Forbidden("invoice is addressed to another admin")
		}
		if !inv.CanMoveTo(to) {
			return apperr.State("invoice cannot move from %s to %s", inv.Status, to)
		}
		updates := map[string]any{"status": to}
		if to == models.InvoicePaid {
			now := time.Now()
			updates["paid_at"] = now
			inv.PaidAt = &now
		}
		res := tx.Model(&models.ContractorInvoice{}).Where("id = ? AND status = ?", id, inv.Status).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update invoice: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("invoice")
		}
		inv.Status = to

		title := fmt.Sprintf("Invoice for %s %s", inv.ProjectName, to)
		if err := s.notifier.Create(tx, notify.Event{
			UserID: inv.ContractorID,
			Type:   models.NotifyInvoiceUpdated,
			Title:  title,
			Link:   "/contractor/invoices",
			Data:   map[string]any{"invoiceId": inv.ID, "status": to},
		}); err != nil {
			return err
		}
		*mails = append(*mails, notify.Mail{
			To:      userEmail(tx, inv.ContractorID),
			Subject: title,
			Data:    map[string]any{"Title": title, "Link": "/contractor/invoices"},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("contractor_invoice", string(to))
	return inv, nil
}

func (s *InvoiceService) ListForContractor(ctx context.Context, actor Actor) ([]models.ContractorInvoice, error) {
	return s.list(ctx, "contractor_id = ?", actor.ID)
}

func (s *InvoiceService) ListForAdmin(ctx context.Context, actor Actor) ([]models.ContractorInvoice, error) {
	return s.list(ctx, "admin_id = ?", actor.ID)
}

func (s *InvoiceService) list(ctx context.Context, where string, id uint) ([]models.ContractorInvoice, error) {
	var out []models.ContractorInvoice
	err := s.db.WithContext(ctx).Preload("Contractor").Where(where, id).Order("created_at DESC, id DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}

// Get returns an invoice to its contractor or its admin.
func (s *InvoiceService) Get(ctx context.Context, actor Actor, id uint) (*models.ContractorInvoice, error) {
	var inv models.ContractorInvoice
	err := s.db.WithContext(ctx).Preload("Contractor").First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("invoice")
	}
	if err != nil {
		return nil, fmt.Errorf("load invoice %d: %w", id, err)
	}
	if inv.ContractorID != actor.ID && inv.AdminID != actor.ID {
		return nil, apperr.Forbidden("not your invoice")
	}
	return &inv, nil
}
