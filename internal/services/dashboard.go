package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/models"
)

// Dashboard is the per-role summary behind /dashboard/{role}.
type Dashboard struct {
	Role                models.Role      `json:"role"`
	UnreadNotifications int64            `json:"unreadNotifications"`
	Counts              map[string]int64 `json:"counts"`
}

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type statusCount struct {
	Status string
	N      int64
}

// byStatus adds "<prefix>_<status>" counts for rows of model matching where.
func byStatus(db *gorm.DB, out map[string]int64, prefix string, model any, where string, args ...any) error {
	var rows []statusCount
	q := db.Model(model).Select("status, COUNT(*) AS n").Group("status")
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return fmt.Errorf("count %s: %w", prefix, err)
	}
	for _, r := range rows {
		out[prefix+"_"+r.Status] = r.N
	}
	return nil
}

func (s *DashboardService) For(ctx context.Context, actor Actor) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{Role: actor.Role, Counts: map[string]int64{}}

	var err error
	switch actor.Role {
	case models.RoleAdmin:
		err = s.admin(db, actor, d.Counts)
	case models.RoleClient:
		err = s.client(db, actor, d.Counts)
	case models.RoleContractor:
		err = s.contractor(db, actor, d.Counts)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Model(&models.Notification{}).
		Where(map[string]any{"user_id": actor.ID, "read": false}).
		Count(&d.UnreadNotifications).Error; err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	return d, nil
}

func (s *DashboardService) admin(db *gorm.DB, actor Actor, c map[string]int64) error {
	var n int64
	if err := db.Model(&models.Request{}).Where("status = ?", models.RequestPending).Count(&n).Error; err != nil {
		return fmt.Errorf("count requests: %w", err)
	}
	c["requests_pending"] = n
	if err := byStatus(db, c, "quotes", &models.Quote{}, "admin_id = ?", actor.ID); err != nil {
		return err
	}
	n = 0
	if err := db.Model(&models.ContractorRequest{}).
		Where("admin_id = ? AND status = ?", actor.ID, models.LinkPending).Count(&n).Error; err != nil {
		return fmt.Errorf("count contractor requests: %w", err)
	}
	c["contractor_requests_pending"] = n
	n = 0
	if err := db.Model(&models.ContractorInvoice{}).
		Where("admin_id = ? AND status = ?", actor.ID, models.InvoicePending).Count(&n).Error; err != nil {
		return fmt.Errorf("count invoices: %w", err)
	}
	c["invoices_pending"] = n
	return nil
}

func (s *DashboardService) client(db *gorm.DB, actor Actor, c map[string]int64) error {
	if err := byStatus(db, c, "requests", &models.Request{}, "client_id = ?", actor.ID); err != nil {
		return err
	}
	var n int64
	if err := db.Model(&models.Quote{}).
		Where("client_id = ? AND status IN ?", actor.ID, []models.QuoteStatus{models.QuoteSent, models.QuoteRevised}).
		Count(&n).Error; err != nil {
		return fmt.Errorf("count quotes: %w", err)
	}
	c["quotes_open"] = n
	return nil
}

func (s *DashboardService) contractor(db *gorm.DB, actor Actor, c map[string]int64) error {
	if err := byStatus(db, c, "labor_requests", &models.LaborRequest{}, "contractor_id = ?", actor.ID); err != nil {
		return err
	}
	return byStatus(db, c, "invoices", &models.ContractorInvoice{}, "contractor_id = ?", actor.ID)
}
