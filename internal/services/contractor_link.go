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

type LinkInput struct {
	AdminID uint   `json:"adminId"`
	Message string `json:"message"`
}

// ContractorLinkService turns clients into contractors managed by an admin.
type ContractorLinkService struct {
	db       *gorm.DB
	notifier *notify.Notifier
	// roleChanged is called after commit with the id of a user whose role moved.
	roleChanged func(userID uint)
}

func NewContractorLinkService(db *gorm.DB, n *notify.Notifier, roleChanged func(uint)) *ContractorLinkService {
	if roleChanged == nil {
		roleChanged = func(uint) {}
	}
	return &ContractorLinkService{db: db, notifier: n, roleChanged: roleChanged}
}

// Request asks an admin to link the calling client as a contractor.
func (s *ContractorLinkService) Request(ctx context.Context, actor Actor, in LinkInput) (*models.ContractorRequest, error) {
	v := validation.Violations{}
	validation.RequiredID("adminId", in.AdminID, v)
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}
	var cr models.ContractorRequest
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		var admin models.User
		err := tx.Select("id", "role", "email").First(&admin, in.AdminID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && admin.Role != models.RoleAdmin) {
			return apperr.Invalid("adminId", "not_an_admin")
		}
		if err != nil {
			return fmt.Errorf("load admin: %w", err)
		}
		var pending int64
		err = tx.Model(&models.ContractorRequest{}).
			Where("client_id = ? AND admin_id = ? AND status = ?", actor.ID, in.AdminID, models.LinkPending).
			Count(&pending).Error
		if err != nil {
			return fmt.Errorf("check pending link: %w", err)
		}
		if pending > 0 {
			return apperr.Invalid("adminId", "duplicate_pending")
		}

		cr = models.ContractorRequest{
			ClientID: actor.ID,
			AdminID:  in.AdminID,
			Message:  strings.TrimSpace(in.Message),
			Status:   models.LinkPending,
		}
		if err := tx.Create(&cr).Error; err != nil {
			return fmt.Errorf("insert contractor request: %w", err)
		}
		title := "New contractor link request"
		if err := s.notifier.Create(tx, notify.Event{
			UserID:  in.AdminID,
			Type:    models.NotifyContractorLink,
			Title:   title,
			Message: cr.Message,
			Link:    "/admin/contractor-requests",
			Data:    map[string]any{"contractorRequestId": cr.ID},
		}); err != nil {
			return err
		}
		*mails = append(*mails, notify.Mail{
			To:      admin.Email,
			Subject: title,
			Data:    map[string]any{"Title": title, "Message": cr.Message, "Link": "/admin/contractor-requests"},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// ListPending lists pending link requests addressed to the admin.
func (s *ContractorLinkService) ListPending(ctx context.Context, actor Actor) ([]models.ContractorRequest, error) {
	var out []models.ContractorRequest
	err := s.db.WithContext(ctx).Preload("Client").
		Where("admin_id = ? AND status = ?", actor.ID, models.LinkPending).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list contractor requests: %w", err)
	}
	return out, nil
}

// decide marks a pending link request approved or rejected. The caller's
// apply runs in the same transaction after the status change.
func (s *ContractorLinkService) decide(ctx context.Context, actor Actor, id uint, to models.LinkStatus, apply func(tx *gorm.DB, cr *models.ContractorRequest) error) (*models.ContractorRequest, error) {
	var cr *models.ContractorRequest
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		var err error
		cr, err = first[models.ContractorRequest](tx, id, "contractor request")
		if err != nil {
			return err
		}
		if cr.AdminID != actor.ID {
			return apperr.Forbidden("request is addressed to another admin")
		}
		if cr.Status != models.LinkPending {
			return apperr.State("contractor request is already %s", cr.Status)
		}
		now := time.Now()
		res := tx.Model(&models.ContractorRequest{}).
			Where("id = ? AND status = ?", id, models.LinkPending).
			Updates(map[string]any{"status": to, "decided_at": now})
		if res.Error != nil {
			return fmt.Errorf("update contractor request: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.State("contractor request is no longer pending")
		}
		cr.Status, cr.DecidedAt = to, &now
		if apply != nil {
			if err := apply(tx, cr); err != nil {
				return err
			}
		}

		kind, title := models.NotifyContractorApproved, "You are now a contractor"
		if to == models.LinkRejected {
			kind, title = models.NotifyContractorRejected, "Contractor link request declined"
		}
		if err := s.notifier.Create(tx, notify.Event{
			UserID: cr.ClientID,
			Type:   kind,
			Title:  title,
			Link:   "/dashboard",
			Data:   map[string]any{"contractorRequestId": cr.ID},
		}); err != nil {
			return err
		}
		*mails = append(*mails, notify.Mail{
			To:      userEmail(tx, cr.ClientID),
			Subject: title,
			Data:    map[string]any{"Title": title, "Link": "/dashboard"},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("contractor_request", string(to))
	return cr, nil
}

// Approve links the client to the admin. The request status change and the
// user's role, parent and organisation change commit together or not at all.
// Only a user who is still a client can be linked; their other pending link
// requests are rejected in the same transaction.
func (s *ContractorLinkService) Approve(ctx context.Context, actor Actor, id uint) (*models.ContractorRequest, error) {
	cr, err := s.decide(ctx, actor, id, models.LinkApproved, func(tx *gorm.DB, cr *models.ContractorRequest) error {
		admin, err := first[models.User](tx, cr.AdminID, "admin")
		if err != nil {
			return err
		}
		user, err := first[models.User](tx, cr.ClientID, "user")
		if err != nil {
			return err
		}
		if user.Role != models.RoleClient {
			return apperr.State("user is already a %s", user.Role)
		}
		res := tx.Model(&models.User{}).Where("id = ? AND role = ?", cr.ClientID, models.RoleClient).Updates(map[string]any{
			"role":            models.RoleContractor,
			"parent_id":       admin.ID,
			"organization_id": admin.OrganizationID,
		})
		if res.Error != nil {
			return fmt.Errorf("promote user %d: %w", cr.ClientID, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.State("user is no longer a client")
		}
		// the client's requests to other admins can no longer be granted
		err = tx.Model(&models.ContractorRequest{}).
			Where("client_id = ? AND status = ? AND id <> ?", cr.ClientID, models.LinkPending, cr.ID).
			Updates(map[string]any{"status": models.LinkRejected, "decided_at": cr.DecidedAt}).Error
		if err != nil {
			return fmt.Errorf("close other contractor requests: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.roleChanged(cr.ClientID)
	return cr, nil
}

func (s *ContractorLinkService) Reject(ctx context.Context, actor Actor, id uint) (*models.ContractorRequest, error) {
	return s.decide(ctx, actor, id, models.LinkRejected, nil)
}
