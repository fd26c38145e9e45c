package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/pricing"
	"github.com/diewo77/procurement/validation"
)

type ServiceInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        models.ItemUnit `json:"unit"`
	UnitPrice   float64         `json:"unitPrice"`
	Active      *bool           `json:"active,omitempty"`
}

type TemplateInput struct {
	Name  string      `json:"name"`
	Items []ItemInput `json:"items"`
}

// CatalogService manages the service catalog and admins' pricing templates.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (in ServiceInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.NonNegativeFloat("unitPrice", in.UnitPrice, v)
	if in.Unit != "" {
		validation.OneOf("unit", string(in.Unit), []string{string(models.UnitFlat), string(models.UnitHourly)}, v)
	}
	return v
}

// ListServices returns active catalog entries, or all of them when all is set.
func (s *CatalogService) ListServices(ctx context.Context, all bool) ([]models.Service, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if !all {
		q = q.Where("active = ?", true)
	}
	var out []models.Service
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return out, nil
}

func (s *CatalogService) nameTaken(tx *gorm.DB, name string, exceptID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.Service{}).Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), exceptID).Count(&n).Error
	return n > 0, err
}

func (s *CatalogService) CreateService(ctx context.Context, in ServiceInput) (*models.Service, error) {
	if v := in.validate(); !v.Empty() {
		return nil, apperr.Validation(v)
	}
	svc := models.Service{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Unit:        in.Unit,
		UnitPrice:   in.UnitPrice,
		Active:      in.Active == nil || *in.Active,
	}
	if svc.Unit == "" {
		svc.Unit = models.UnitFlat
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.nameTaken(tx, svc.Name, 0)
		if err != nil {
			return fmt.Errorf("check service name: %w", err)
		}
		if taken {
			return apperr.Invalid("name", "taken")
		}
		return tx.Create(&svc).Error
	})
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id uint, in ServiceInput) (*models.Service, error) {
	if v := in.validate(); !v.Empty() {
		return nil, apperr.Validation(v)
	}
	var svc *models.Service
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		svc, err = first[models.Service](tx, id, "service")
		if err != nil {
			return err
		}
		name := strings.TrimSpace(in.Name)
		taken, err := s.nameTaken(tx, name, id)
		if err != nil {
			return fmt.Errorf("check service name: %w", err)
		}
		if taken {
			return apperr.Invalid("name", "taken")
		}
		svc.Name = name
		svc.Description = strings.TrimSpace(in.Description)
		if in.Unit != "" {
			svc.Unit = in.Unit
		}
		svc.UnitPrice = in.UnitPrice
		if in.Active != nil {
			svc.Active = *in.Active
		}
		return tx.Save(svc).Error
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// DeleteService removes a catalog entry. Quote lines keep their copied name.
func (s *CatalogService) DeleteService(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := first[models.Service](tx, id, "service"); err != nil {
			return err
		}
		if err := tx.Model(&models.QuoteItem{}).Where("service_id = ?", id).Update("service_id", nil).Error; err != nil {
			return fmt.Errorf("detach quote items: %w", err)
		}
		return tx.Delete(&models.Service{}, id).Error
	})
}

func (s *CatalogService) CreateTemplate(ctx context.Context, actor Actor, in TemplateInput) (*models.PricingTemplate, error) {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	if len(in.Items) == 0 {
		v.Add("items", "required")
	}
	pricing.ValidateLines("items", lines(in.Items), v)
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}
	items := make([]models.TemplateItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = models.TemplateItem{
			ServiceName: strings.TrimSpace(it.ServiceName),
			Description: strings.TrimSpace(it.Description),
			Unit:        it.line().Unit,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode template items: %w", err)
	}
	t := models.PricingTemplate{AdminID: actor.ID, Name: strings.TrimSpace(in.Name), Items: datatypes.JSON(raw)}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("insert pricing template: %w", err)
	}
	return &t, nil
}

func (s *CatalogService) ListTemplates(ctx context.Context, actor Actor) ([]models.PricingTemplate, error) {
	var out []models.PricingTemplate
	err := s.db.WithContext(ctx).Where("admin_id = ?", actor.ID).Order("name ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list pricing templates: %w", err)
	}
	return out, nil
}

// DeleteTemplate deletes one of the admin's own templates.
func (s *CatalogService) DeleteTemplate(ctx context.Context, actor Actor, id uint) error {
	var t models.PricingTemplate
	db := s.db.WithContext(ctx)
	if err := db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("pricing template")
		}
		return fmt.Errorf("load pricing template: %w", err)
	}
	if t.AdminID != actor.ID {
		return apperr.Forbidden("not your template")
	}
	return db.Delete(&t).Error
}
