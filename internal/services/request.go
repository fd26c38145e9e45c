package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/metrics"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/storage"
	"github.com/diewo77/procurement/validation"
)

type ProjectInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type RequestInput struct {
	ProjectID   *uint  `json:"projectId,omitempty"`
	ProjectName string `json:"projectName"`
	Description string `json:"description"`
}

type RequestFilter struct {
	Status models.RequestStatus
}

type RequestService struct {
	db    *gorm.DB
	blobs storage.Blob
}

func NewRequestService(db *gorm.DB, blobs storage.Blob) *RequestService {
	return &RequestService{db: db, blobs: blobs}
}

func (s *RequestService) CreateProject(ctx context.Context, actor Actor, in ProjectInput) (*models.Project, error) {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}
	p := models.Project{ClientID: actor.ID, Name: strings.TrimSpace(in.Name), Address: strings.TrimSpace(in.Address)}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return &p, nil
}

func (s *RequestService) ListProjects(ctx context.Context, actor Actor) ([]models.Project, error) {
	var out []models.Project
	if err := s.db.WithContext(ctx).Where("client_id = ?", actor.ID).Order("name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// Create files a new pending request. A project id, when given, must belong
// to the client and supplies the project name.
func (s *RequestService) Create(ctx context.Context, actor Actor, in RequestInput) (*models.Request, error) {
	v := validation.Violations{}
	req := models.Request{
		ClientID:    actor.ID,
		ProjectName: strings.TrimSpace(in.ProjectName),
		Description: strings.TrimSpace(in.Description),
		Status:      models.RequestPending,
	}
	db := s.db.WithContext(ctx)
	if in.ProjectID != nil {
		var p models.Project
		err := db.First(&p, *in.ProjectID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && p.ClientID != actor.ID):
			v.Add("projectId", "not_found")
		case err != nil:
			return nil, fmt.Errorf("load project: %w", err)
		default:
			req.ProjectID = &p.ID
			req.ProjectName = p.Name
		}
	} else {
		validation.Required("projectName", in.ProjectName, v)
	}
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}
	if err := db.Create(&req).Error; err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	metrics.Transition("request", string(req.Status))
	return &req, nil
}

func (s *RequestService) Get(ctx context.Context, id uint) (*models.Request, error) {
	var r models.Request
	err := s.db.WithContext(ctx).Preload("Client").First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("request")
	}
	if err != nil {
		return nil, fmt.Errorf("load request %d: %w", id, err)
	}
	return &r, nil
}

// GetFor returns a request to its owning client or any admin.
func (s *RequestService) GetFor(ctx context.Context, actor Actor, id uint) (*models.Request, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && r.ClientID != actor.ID {
		return nil, apperr.Forbidden("not your request")
	}
	return r, nil
}

// List returns every request for admins and the caller's own for clients.
func (s *RequestService) List(ctx context.Context, actor Actor, f RequestFilter) ([]models.Request, error) {
	q := s.db.WithContext(ctx).Preload("Client").Order("created_at DESC, id DESC")
	if !actor.IsAdmin() {
		q = q.Where("client_id = ?", actor.ID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.Request
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// AdvanceStatus moves a request one manual step: approved to contract_sent to
// completed. Anything else is a state error.
func (s *RequestService) AdvanceStatus(ctx context.Context, id uint, to models.RequestStatus) (*models.Request, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := first[models.Request](tx, id, "request")
		if err != nil {
			return err
		}
		next, ok := r.NextAdminStatus()
		if !ok || next != to {
			return apperr.State("request cannot move from %s to %s", r.Status, to)
		}
		res := tx.Model(&models.Request{}).Where("id = ? AND status = ?", id, r.Status).Update("status", to)
		if res.Error != nil {
			return fmt.Errorf("update request status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("request", string(to))
	return s.Get(ctx, id)
}

// Delete removes a pending request. Linked quotes and labor requests are
// detached; its documents go with it. Blob removal happens after commit and
// only logs failures.
func (s *RequestService) Delete(ctx context.Context, actor Actor, id uint) error {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := first[models.Request](tx, id, "request")
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && r.ClientID != actor.ID {
			return apperr.Forbidden("not your request")
		}
		if !r.CanDelete() {
			return apperr.State("only pending requests can be deleted")
		}
		if err := tx.Model(&models.Quote{}).Where("request_id = ?", id).Update("request_id", nil).Error; err != nil {
			return fmt.Errorf("detach quotes: %w", err)
		}
		if err := tx.Model(&models.LaborRequest{}).Where("request_id = ?", id).Update("request_id", nil).Error; err != nil {
			return fmt.Errorf("detach labor requests: %w", err)
		}
		var docs []models.Document
		if err := tx.Where("owner_type = ? AND owner_id = ?", models.DocumentOwnerRequest, id).Find(&docs).Error; err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		for _, d := range docs {
			keys = append(keys, d.ObjectKey)
		}
		if err := tx.Where("owner_type = ? AND owner_id = ?", models.DocumentOwnerRequest, id).Delete(&models.Document{}).Error; err != nil {
			return fmt.Errorf("delete documents: %w", err)
		}
		res := tx.Where("id = ? AND status = ?", id, models.RequestPending).Delete(&models.Request{})
		if res.Error != nil {
			return fmt.Errorf("delete request: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("request")
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.blobs.Remove(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).WithField("key", k).Warn("remove document blob")
		}
	}
	return nil
}
