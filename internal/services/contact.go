package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/notify"
	"github.com/diewo77/procurement/validation"
)

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type ContactService struct {
	db       *gorm.DB
	notifier *notify.Notifier
	adminTo  string
}

// NewContactService stores submissions and forwards them to adminTo, when set.
func NewContactService(db *gorm.DB, n *notify.Notifier, adminTo string) *ContactService {
	return &ContactService{db: db, notifier: n, adminTo: adminTo}
}

func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.ContactSubmission, error) {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Email("email", strings.TrimSpace(in.Email), v)
	validation.Required("message", in.Message, v)
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}
	c := models.ContactSubmission{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:   strings.TrimSpace(in.Phone),
		Message: strings.TrimSpace(in.Message),
	}
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("insert contact submission: %w", err)
		}
		*mails = append(*mails, notify.Mail{
			To:       s.adminTo,
			Subject:  "New contact form submission from " + c.Name,
			Template: notify.TemplateContact,
			Data:     map[string]any{"Contact": c},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ContactService) List(ctx context.Context) ([]models.ContactSubmission, error) {
	var out []models.ContactSubmission
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list contact submissions: %w", err)
	}
	return out, nil
}
