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
	"github.com/diewo77/procurement/internal/pricing"
	"github.com/diewo77/procurement/validation"
)

type LaborInput struct {
	ContractorID uint   `json:"contractorId"`
	RequestID    *uint  `json:"requestId,omitempty"`
	Message      string `json:"message"`
}

// EstimateInput is a contractor's priced answer to a labor request.
type EstimateInput struct {
	Items             []ItemInput `json:"items"`
	Discount          float64     `json:"discount"`
	DepositRequired   bool        `json:"depositRequired"`
	DepositPercentage float64     `json:"depositPercentage"`
	Notes             string      `json:"notes"`
	Version           int         `json:"version"`
}

type LaborFilter struct {
	Status models.LaborStatus
}

type LaborService struct {
	db       *gorm.DB
	notifier *notify.Notifier
}

func NewLaborService(db *gorm.DB, n *notify.Notifier) *LaborService {
	return &LaborService{db: db, notifier: n}
}

// Create assigns a labor request to a contractor of the admin's organisation.
func (s *LaborService) Create(ctx context.Context, actor Actor, in LaborInput) (*models.LaborRequest, error) {
	v := validation.Violations{}
	validation.RequiredID("contractorId", in.ContractorID, v)
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	var id uint
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		admin, err := first[models.User](tx, actor.ID, "user")
		if err != nil {
			return err
		}
		var contractor models.User
		err = tx.First(&contractor, in.ContractorID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			v.Add("contractorId", "not_found")
		case err != nil:
			return fmt.Errorf("load contractor: %w", err)
		case contractor.Role != models.RoleContractor || contractor.OrganizationID != admin.OrganizationID:
			v.Add("contractorId", "not_a_contractor")
		}
		if in.RequestID != nil {
			var n int64
			if err := tx.Model(&models.Request{}).Where("id = ?", *in.RequestID).Count(&n).Error; err != nil {
				return fmt.Errorf("check request: %w", err)
			}
			if n == 0 {
				v.Add("requestId", "not_found")
			}
		}
		if !v.Empty() {
			return apperr.Validation(v)
		}

		lr := models.LaborRequest{
			AdminID:      actor.ID,
			ContractorID: contractor.ID,
			RequestID:    in.RequestID,
			Message:      strings.TrimSpace(in.Message),
			Status:       models.LaborPending,
			Version:      1,
		}
		if err := tx.Create(&lr).Error; err != nil {
			return fmt.Errorf("insert labor request: %w", err)
		}
		id = lr.ID

		title := "New labor request"
		link := fmt.Sprintf("/contractor/labor-requests/%d", lr.ID)
		if err := s.notifier.Create(tx, notify.Event{
			UserID:  contractor.ID,
			Type:    models.NotifyLaborAssigned,
			Title:   title,
			Message: lr.Message,
			Link:    link,
			Data:    map[string]any{"laborRequestId": lr.ID},
		}); err != nil {
			return err
		}
		*mails = append(*mails, notify.Mail{
			To:      contractor.Email,
			Subject: title,
			Data:    map[string]any{"Title": title, "Message": lr.Message, "Link": link},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("labor_request", string(models.LaborPending))
	return s.Get(ctx, id)
}

// Submit records the contractor's estimate. Re-submitting before the admin
// decides replaces the previous items.
func (s *LaborService) Submit(ctx context.Context, actor Actor, id uint, in EstimateInput) (*models.LaborRequest, error) {
	v := validation.Violations{}
	if len(in.Items) == 0 {
		v.Add("items", "required")
	}
	pricing.ValidateLines("items", lines(in.Items), v)
	pricing.ValidateEstimate(in.Discount, in.DepositRequired, in.DepositPercentage, v)
	if in.Version <= 0 {
		v.Add("version", "required")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.ServiceName) == "" && strings.TrimSpace(it.Description) == "" {
			v.Add(fmt.Sprintf("items[%d].description", i), "required")
		}
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}
	totals := pricing.ComputeEstimate(lines(in.Items), in.Discount, in.DepositRequired, in.DepositPercentage)

	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		lr, err := first[models.LaborRequest](tx, id, "labor request")
		if err != nil {
			return err
		}
		if lr.ContractorID != actor.ID {
			return apperr.Forbidden("labor request is assigned to another contractor")
		}
		if !lr.CanSubmit() {
			return apperr.State("labor request in status %s cannot take an estimate", lr.Status)
		}
		if lr.Version != in.Version {
			metrics.Conflict("labor_request")
			return apperr.Conflict("labor request")
		}

		now := time.Now()
		err = casUpdate(tx, &models.LaborRequest{}, "labor_request", id, in.Version, map[string]any{
			"status":             models.LaborQuoted,
			"subtotal":           totals.Subtotal,
			"discount":           totals.Discount,
			"quote_price":        totals.Total,
			"deposit_required":   in.DepositRequired,
			"deposit_percentage": totals.DepositPercentage,
			"deposit_amount":     totals.DepositAmount,
			"contractor_notes":   strings.TrimSpace(in.Notes),
			"submitted_at":       now,
		})
		if err != nil {
			return err
		}
		if err := tx.Where("labor_request_id = ?", id).Delete(&models.LaborRequestItem{}).Error; err != nil {
			return fmt.Errorf("delete estimate items: %w", err)
		}
		items := make([]models.LaborRequestItem, len(in.Items))
		for i, it := range in.Items {
			items[i] = models.LaborRequestItem{
				LaborRequestID: id,
				Position:       i,
				ServiceName:    strings.TrimSpace(it.ServiceName),
				Description:    strings.TrimSpace(it.Description),
				Unit:           it.line().Unit,
				UnitPrice:      it.UnitPrice,
				Quantity:       it.Quantity,
				Price:          totals.LinePrices[i],
				Total:          totals.LinePrices[i],
			}
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert estimate items: %w", err)
		}

		lr.Subtotal, lr.Discount, lr.QuotePrice = totals.Subtotal, totals.Discount, totals.Total
		lr.DepositRequired, lr.DepositPercentage, lr.DepositAmount = in.DepositRequired, totals.DepositPercentage, totals.DepositAmount
		lr.ContractorNotes = strings.TrimSpace(in.Notes)

		title := fmt.Sprintf("Estimate received for labor request #%d", id)
		link := fmt.Sprintf("/admin/labor-requests/%d", id)
		if err := s.notifier.Create(tx, notify.Event{
			UserID:  lr.AdminID,
			Type:    models.NotifyEstimateSubmitted,
			Title:   title,
			Message: fmt.Sprintf("Estimate total %.2f.", totals.Total),
			Link:    link,
			Data:    map[string]any{"laborRequestId": id},
		}); err != nil {
			return err
		}
		*mails = append(*mails, notify.Mail{
			To:       userEmail(tx, lr.AdminID),
			Subject:  title,
			Template: notify.TemplateEstimate,
			Data:     map[string]any{"Title": title, "Labor": lr, "Link": link},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("labor_request", string(models.LaborQuoted))
	return s.Get(ctx, id)
}

// decide applies an admin decision guarded by allowed current statuses.
func (s *LaborService) decide(ctx context.Context, actor Actor, id uint, to models.LaborStatus, allowed []models.LaborStatus, updates map[string]any, kind string) (*models.LaborRequest, error) {
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		lr, err := first[models.LaborRequest](tx, id, "labor request")
		if err != nil {
			return err
		}
		if lr.AdminID != actor.ID {
			return apperr.Forbidden("labor request belongs to another admin")
		}
		ok := false
		for _, st := range allowed {
			ok = ok || lr.Status == st
		}
		if !ok {
			return apperr.State("labor request cannot move from %s to %s", lr.Status, to)
		}
		updates["status"] = to
		if err := casUpdate(tx, &models.LaborRequest{}, "labor_request", id, lr.Version, updates); err != nil {
			return err
		}

		title := fmt.Sprintf("Labor request #%d %s", id, to)
		link := fmt.Sprintf("/contractor/labor-requests/%d", id)
		if err := s.notifier.Create(tx, notify.Event{
			UserID: lr.ContractorID,
			Type:   kind,
			Title:  title,
			Link:   link,
			Data:   map[string]any{"laborRequestId": id},
		}); err != nil {
			return err
		}
		*mails = append(*mails, notify.Mail{
			To:      userEmail(tx, lr.ContractorID),
			Subject: title,
			Data:    map[string]any{"Title": title, "Message": "Your estimate was " + string(to) + ".", "Link": link},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("labor_request", string(to))
	return s.Get(ctx, id)
}

// Approve accepts a submitted estimate.
func (s *LaborService) Approve(ctx context.Context, actor Actor, id uint) (*models.LaborRequest, error) {
	return s.decide(ctx, actor, id, models.LaborApproved,
		[]models.LaborStatus{models.LaborQuoted},
		map[string]any{"progress": models.ProgressQuoteAccepted},
		models.NotifyEstimateApproved)
}

// Reject closes a labor request that has not been approved.
func (s *LaborService) Reject(ctx context.Context, actor Actor, id uint) (*models.LaborRequest, error) {
	return s.decide(ctx, actor, id, models.LaborRejected,
		[]models.LaborStatus{models.LaborPending, models.LaborQuoted},
		map[string]any{"progress": ""},
		models.NotifyEstimateRejected)
}

// AdvanceProgress moves an approved labor request's progress strictly forward.
func (s *LaborService) AdvanceProgress(ctx context.Context, actor Actor, id uint, progress models.LaborProgress) (*models.LaborRequest, error) {
	if progress.Rank() <= 0 {
		return nil, apperr.Invalid("progress", "invalid_choice")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lr, err := first[models.LaborRequest](tx, id, "labor request")
		if err != nil {
			return err
		}
		if lr.AdminID != actor.ID {
			return apperr.Forbidden("labor request belongs to another admin")
		}
		if lr.Status != models.LaborApproved {
			return apperr.State("progress can only change on approved labor requests")
		}
		if progress.Rank() <= lr.Progress.Rank() {
			return apperr.State("progress cannot move from %q back to %q", lr.Progress, progress)
		}
		if err := casUpdate(tx, &models.LaborRequest{}, "labor_request", id, lr.Version, map[string]any{
			"progress": progress,
		}); err != nil {
			return err
		}
		return s.notifier.Create(tx, notify.Event{
			UserID:  lr.ContractorID,
			Type:    models.NotifyProgressUpdated,
			Title:   fmt.Sprintf("Labor request #%d progress", id),
			Message: strings.ReplaceAll(string(progress), "_", " "),
			Link:    fmt.Sprintf("/contractor/labor-requests/%d", id),
			Data:    map[string]any{"laborRequestId": id, "progress": progress},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *LaborService) Get(ctx context.Context, id uint) (*models.LaborRequest, error) {
	var lr models.LaborRequest
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Contractor").
		Preload("Request").
		First(&lr, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("labor request")
	}
	if err != nil {
		return nil, fmt.Errorf("load labor request %d: %w", id, err)
	}
	return &lr, nil
}

// GetFor returns a labor request only to its author admin or its assignee.
func (s *LaborService) GetFor(ctx context.Context, actor Actor, id uint) (*models.LaborRequest, error) {
	lr, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lr.AdminID != actor.ID && lr.ContractorID != actor.ID {
		return nil, apperr.Forbidden("not your labor request")
	}
	return lr, nil
}

// ListForAdmin lists the labor requests an admin issued.
func (s *LaborService) ListForAdmin(ctx context.Context, actor Actor, f LaborFilter) ([]models.LaborRequest, error) {
	return s.list(ctx, "admin_id = ?", actor.ID, f)
}

// ListForContractor lists the labor requests assigned to a contractor.
func (s *LaborService) ListForContractor(ctx context.Context, actor Actor, f LaborFilter) ([]models.LaborRequest, error) {
	return s.list(ctx, "contractor_id = ?", actor.ID, f)
}

func (s *LaborService) list(ctx context.Context, where string, id uint, f LaborFilter) ([]models.LaborRequest, error) {
	q := s.db.WithContext(ctx).Preload("Contractor").Where(where, id).Order("created_at DESC, id DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.LaborRequest
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list labor requests: %w", err)
	}
	return out, nil
}
