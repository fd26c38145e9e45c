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

// QuoteInput is the payload of a quote save. Totals are never taken from the
// caller; they are recomputed from the items.
type QuoteInput struct {
	RequestID   *uint              `json:"requestId,omitempty"`
	ClientID    *uint              `json:"clientId,omitempty"`
	ProjectName string             `json:"projectName"`
	Notes       string             `json:"notes"`
	TaxLocation string             `json:"taxLocation"`
	TaxRate     *float64           `json:"taxRate,omitempty"`
	DeliveryFee float64            `json:"deliveryFee"`
	Status      models.QuoteStatus `json:"status"`
	Version     int                `json:"version"`
	Items       []ItemInput        `json:"quoteItems"`
}

// QuotePreview is the priced form of a QuoteInput.
type QuotePreview struct {
	TaxLocation string `json:"taxLocation"`
	pricing.QuoteTotals
}

// QuoteFilter narrows admin quote listings.
type QuoteFilter struct {
	Status    models.QuoteStatus
	RequestID uint
}

type QuoteService struct {
	db       *gorm.DB
	notifier *notify.Notifier
}

func NewQuoteService(db *gorm.DB, n *notify.Notifier) *QuoteService {
	return &QuoteService{db: db, notifier: n}
}

// price validates the priced part of in and computes its totals.
func price(in QuoteInput, v validation.Violations) (QuotePreview, bool) {
	pricing.ValidateLines("quoteItems", lines(in.Items), v)
	validation.NonNegativeFloat("deliveryFee", in.DeliveryFee, v)
	loc, rate, err := pricing.ResolveTaxRate(strings.TrimSpace(in.TaxLocation), in.TaxRate)
	switch {
	case errors.Is(err, pricing.ErrUnknownLocation):
		v.Add("taxLocation", "unknown_location")
	case errors.Is(err, pricing.ErrTaxRateRange):
		v.Add("taxRate", "out_of_range")
	}
	if !v.Empty() {
		return QuotePreview{}, false
	}
	return QuotePreview{TaxLocation: loc, QuoteTotals: pricing.ComputeQuote(lines(in.Items), rate, in.DeliveryFee)}, true
}

// Preview prices a payload without saving anything.
func (s *QuoteService) Preview(in QuoteInput) (QuotePreview, error) {
	v := validation.Violations{}
	p, ok := price(in, v)
	if !ok {
		return QuotePreview{}, apperr.Validation(v)
	}
	return p, nil
}

// parties resolves who the quote is for. A linked request is authoritative for
// the client and project name.
func (s *QuoteService) parties(tx *gorm.DB, in QuoteInput, v validation.Violations) (clientID *uint, projectName string, err error) {
	if in.RequestID != nil {
		var req models.Request
		if err := tx.First(&req, *in.RequestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				v.Add("requestId", "not_found")
				return nil, "", nil
			}
			return nil, "", err
		}
		cid := req.ClientID
		return &cid, req.ProjectName, nil
	}

	validation.Required("projectName", in.ProjectName, v)
	if in.ClientID == nil || *in.ClientID == 0 {
		if in.Status != models.QuoteDraft {
			v.Add("clientId", "required")
		}
		return nil, strings.TrimSpace(in.ProjectName), nil
	}
	var client models.User
	err = tx.Select("id", "role").First(&client, *in.ClientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && client.Role != models.RoleClient) {
		v.Add("clientId", "not_a_client")
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	cid := client.ID
	return &cid, strings.TrimSpace(in.ProjectName), nil
}

// buildItems turns inputs into rows, filling names from the catalog.
func buildItems(tx *gorm.DB, in []ItemInput, prices []float64, v validation.Violations) ([]models.QuoteItem, error) {
	items := make([]models.QuoteItem, len(in))
	for i, it := range in {
		name := strings.TrimSpace(it.ServiceName)
		if it.ServiceID != nil {
			var svc models.Service
			err := tx.First(&svc, *it.ServiceID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				v.Add(fmt.Sprintf("quoteItems[%d].serviceId", i), "not_found")
				continue
			}
			if err != nil {
				return nil, err
			}
			if name == "" {
				name = svc.Name
			}
		}
		if name == "" && strings.TrimSpace(it.Description) == "" {
			v.Add(fmt.Sprintf("quoteItems[%d].description", i), "required")
		}
		line := it.line()
		items[i] = models.QuoteItem{
			Position:    i,
			ServiceID:   it.ServiceID,
			ServiceName: name,
			Description: strings.TrimSpace(it.Description),
			Unit:        line.Unit,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Price:       prices[i],
		}
	}
	return items, nil
}

func (s *QuoteService) validateStatus(status models.QuoteStatus, v validation.Violations) {
	validation.OneOf("status", string(status), []string{
		string(models.QuoteDraft), string(models.QuoteSent), string(models.QuoteRevised),
	}, v)
}

// Create saves a new quote in draft or sent status.
func (s *QuoteService) Create(ctx context.Context, actor Actor, in QuoteInput) (*models.Quote, error) {
	if in.Status == "" {
		in.Status = models.QuoteDraft
	}
	v := validation.Violations{}
	if in.Status != models.QuoteDraft && in.Status != models.QuoteSent {
		v.Add("status", "invalid_choice")
	}
	priced, _ := price(in, v)
	if in.Status != models.QuoteDraft && len(in.Items) == 0 {
		v.Add("quoteItems", "required")
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	var id uint
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		clientID, projectName, err := s.parties(tx, in, v)
		if err != nil {
			return err
		}
		items, err := buildItems(tx, in.Items, priced.LinePrices, v)
		if err != nil {
			return err
		}
		if !v.Empty() {
			return apperr.Validation(v)
		}

		q := models.Quote{
			AdminID:     actor.ID,
			RequestID:   in.RequestID,
			ClientID:    clientID,
			ProjectName: projectName,
			Notes:       strings.TrimSpace(in.Notes),
			Status:      in.Status,
			Version:     1,
		}
		applyTotals(&q, priced)
		if err := tx.Create(&q).Error; err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
		if err := insertItems(tx, q.ID, items); err != nil {
			return err
		}
		id = q.ID
		if q.Status == models.QuoteSent {
			q.Items = items
			return s.announce(tx, &q, mails)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("quote", string(in.Status))
	return s.Get(ctx, id)
}

// Update replaces a quote's content. The caller's version must match; drafts
// may stay drafts or be sent, sent and revised quotes may only be revised,
// approved quotes are frozen. Only drafts may change their linked request.
func (s *QuoteService) Update(ctx context.Context, actor Actor, id uint, in QuoteInput) (*models.Quote, error) {
	v := validation.Violations{}
	if in.Status == "" {
		v.Add("status", "required")
	} else {
		s.validateStatus(in.Status, v)
	}
	if in.Version <= 0 {
		v.Add("version", "required")
	}
	priced, _ := price(in, v)
	if in.Status != models.QuoteDraft && len(in.Items) == 0 {
		v.Add("quoteItems", "required")
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}

	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		cur, err := first[models.Quote](tx, id, "quote")
		if err != nil {
			return err
		}
		if cur.Version != in.Version {
			metrics.Conflict("quote")
			return apperr.Conflict("quote")
		}
		if cur.Status == models.QuoteApproved {
			return apperr.State("approved quotes cannot be modified")
		}
		if !cur.CanTransition(in.Status) {
			return apperr.State("quote cannot move from %s to %s", cur.Status, in.Status)
		}
		if cur.Status != models.QuoteDraft && !sameID(cur.RequestID, in.RequestID) {
			return apperr.State("linked request cannot change once the quote is sent")
		}

		clientID, projectName, err := s.parties(tx, in, v)
		if err != nil {
			return err
		}
		items, err := buildItems(tx, in.Items, priced.LinePrices, v)
		if err != nil {
			return err
		}
		if !v.Empty() {
			return apperr.Validation(v)
		}

		next := *cur
		next.RequestID = in.RequestID
		next.ClientID = clientID
		next.ProjectName = projectName
		next.Notes = strings.TrimSpace(in.Notes)
		next.Status = in.Status
		applyTotals(&next, priced)
		announce := (cur.Status != models.QuoteSent && in.Status == models.QuoteSent) || in.Status == models.QuoteRevised

		updates := map[string]any{
			"request_id":   next.RequestID,
			"client_id":    next.ClientID,
			"project_name": next.ProjectName,
			"notes":        next.Notes,
			"tax_location": next.TaxLocation,
			"net_price":    next.NetPrice,
			"tax_rate":     next.TaxRate,
			"tax_amount":   next.TaxAmount,
			"delivery_fee": next.DeliveryFee,
			"total_price":  next.TotalPrice,
			"status":       next.Status,
		}
		if err := casUpdate(tx, &models.Quote{}, "quote", id, in.Version, updates); err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return fmt.Errorf("delete quote items: %w", err)
		}
		if err := insertItems(tx, id, items); err != nil {
			return err
		}
		if announce {
			next.Items = items
			return s.announce(tx, &next, mails)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("quote", string(in.Status))
	return s.Get(ctx, id)
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func applyTotals(q *models.Quote, p QuotePreview) {
	q.TaxLocation = p.TaxLocation
	q.NetPrice = p.NetPrice
	q.TaxRate = p.TaxRate
	q.TaxAmount = p.TaxAmount
	q.DeliveryFee = p.DeliveryFee
	q.TotalPrice = p.TotalPrice
}

func insertItems(tx *gorm.DB, quoteID uint, items []models.QuoteItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].QuoteID = quoteID
	}
	if err := tx.Create(&items).Error; err != nil {
		return fmt.Errorf("insert quote items: %w", err)
	}
	return nil
}

// announce runs the side effects of a quote reaching its client: the linked
// request becomes quoted, the client gets a notification row now and an email
// after commit.
func (s *QuoteService) announce(tx *gorm.DB, q *models.Quote, mails *[]notify.Mail) error {
	now := time.Now()
	if err := tx.Model(&models.Quote{}).Where("id = ?", q.ID).Update("sent_at", now).Error; err != nil {
		return fmt.Errorf("stamp quote sent: %w", err)
	}
	if q.RequestID != nil {
		err := tx.Model(&models.Request{}).
			Where("id = ? AND status IN ?", *q.RequestID, []models.RequestStatus{models.RequestPending, models.RequestQuoted}).
			Update("status", models.RequestQuoted).Error
		if err != nil {
			return fmt.Errorf("mark request quoted: %w", err)
		}
	}
	if q.ClientID == nil {
		return nil
	}

	kind, title := models.NotifyQuoteSent, "New quote: "+q.ProjectName
	if q.Status == models.QuoteRevised {
		kind, title = models.NotifyQuoteRevised, "Revised quote: "+q.ProjectName
	}
	link := fmt.Sprintf("/client/quotes/%d", q.ID)
	if err := s.notifier.Create(tx, notify.Event{
		UserID:  *q.ClientID,
		Type:    kind,
		Title:   title,
		Message: fmt.Sprintf("Total %.2f. Review and approve it in your portal.", q.TotalPrice),
		Link:    link,
		Data:    map[string]any{"quoteId": q.ID},
	}); err != nil {
		return err
	}
	*mails = append(*mails, notify.Mail{
		To:       userEmail(tx, *q.ClientID),
		Subject:  title,
		Template: notify.TemplateQuote,
		Data:     map[string]any{"Title": title, "Quote": q, "Link": link},
	})
	return nil
}

// Delete removes a draft quote and its items.
func (s *QuoteService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := first[models.Quote](tx, id, "quote")
		if err != nil {
			return err
		}
		if !q.IsDraft() {
			return apperr.State("only draft quotes can be deleted")
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return fmt.Errorf("delete quote items: %w", err)
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete quote comments: %w", err)
		}
		res := tx.Where("id = ? AND status = ?", id, models.QuoteDraft).Delete(&models.Quote{})
		if res.Error != nil {
			return fmt.Errorf("delete quote: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("quote")
		}
		return nil
	})
}

// Approve is the client's acceptance of a sent or revised quote. A linked
// request in quoted status moves to approved in the same transaction.
func (s *QuoteService) Approve(ctx context.Context, actor Actor, id uint) (*models.Quote, error) {
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		q, err := first[models.Quote](tx, id, "quote")
		if err != nil {
			return err
		}
		if q.GetUserID() != actor.ID {
			return apperr.Forbidden("only the quote's client can approve it")
		}
		if !q.CanApprove() {
			return apperr.State("quote in status %s cannot be approved", q.Status)
		}
		now := time.Now()
		if err := casUpdate(tx, &models.Quote{}, "quote", id, q.Version, map[string]any{
			"status":      models.QuoteApproved,
			"approved_at": now,
		}); err != nil {
			return err
		}
		if q.RequestID != nil {
			err := tx.Model(&models.Request{}).
				Where("id = ? AND status = ?", *q.RequestID, models.RequestQuoted).
				Update("status", models.RequestApproved).Error
			if err != nil {
				return fmt.Errorf("mark request approved: %w", err)
			}
		}

		title := "Quote approved: " + q.ProjectName
		link := fmt.Sprintf("/admin/quotes/%d", q.ID)
		if err := s.notifier.Create(tx, notify.Event{
			UserID:  q.AdminID,
			Type:    models.NotifyQuoteApproved,
			Title:   title,
			Message: fmt.Sprintf("The client approved quote #%d (total %.2f).", q.ID, q.TotalPrice),
			Link:    link,
			Data:    map[string]any{"quoteId": q.ID},
		}); err != nil {
			return err
		}
		*mails = append(*mails, notify.Mail{
			To:      userEmail(tx, q.AdminID),
			Subject: title,
			Data:    map[string]any{"Title": title, "Message": "Your client approved the quote.", "Link": link},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("quote", string(models.QuoteApproved))
	return s.Get(ctx, id)
}

// Get loads a quote with its items in display order, client and comments.
func (s *QuoteService) Get(ctx context.Context, id uint) (*models.Quote, error) {
	var q models.Quote
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Comments.Author").
		Preload("Client").
		Preload("Request").
		First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("quote")
	}
	if err != nil {
		return nil, fmt.Errorf("load quote %d: %w", id, err)
	}
	return &q, nil
}

// List returns quotes for the admin views, newest first.
func (s *QuoteService) List(ctx context.Context, f QuoteFilter) ([]models.Quote, error) {
	q := s.db.WithContext(ctx).Preload("Client").Order("created_at DESC, id DESC")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RequestID != 0 {
		q = q.Where("request_id = ?", f.RequestID)
	}
	var out []models.Quote
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return out, nil
}

// ListForClient returns the client's quotes, drafts excluded.
func (s *QuoteService) ListForClient(ctx context.Context, actor Actor) ([]models.Quote, error) {
	var out []models.Quote
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND status <> ?", actor.ID, models.QuoteDraft).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list client quotes: %w", err)
	}
	return out, nil
}

// GetForClient hides drafts from their client.
func (s *QuoteService) GetForClient(ctx context.Context, actor Actor, id uint) (*models.Quote, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.GetUserID() != actor.ID {
		return nil, apperr.Forbidden("not your quote")
	}
	if q.IsDraft() {
		return nil, apperr.NotFound("quote")
	}
	return q, nil
}

// ForDocument returns a quote the actor may read or download: admins see any
// quote, clients only their own non-draft quotes.
func (s *QuoteService) ForDocument(ctx context.Context, actor Actor, id uint) (*models.Quote, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return q, nil
	}
	if q.GetUserID() != actor.ID || q.IsDraft() {
		return nil, apperr.Forbidden("quote is not available")
	}
	return q, nil
}
