package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/notify"
)

type CommentService struct {
	db       *gorm.DB
	notifier *notify.Notifier
}

func NewCommentService(db *gorm.DB, n *notify.Notifier) *CommentService {
	return &CommentService{db: db, notifier: n}
}

// visibleQuote loads a quote the actor may discuss.
func visibleQuote(tx *gorm.DB, actor Actor, id uint) (*models.Quote, error) {
	q, err := first[models.Quote](tx, id, "quote")
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return q, nil
	}
	if q.GetUserID() != actor.ID {
		return nil, apperr.Forbidden("not your quote")
	}
	if q.IsDraft() {
		return nil, apperr.NotFound("quote")
	}
	return q, nil
}

// Create adds a comment. A client comment notifies the quote author; an admin
// comment notifies the client.
func (s *CommentService) Create(ctx context.Context, actor Actor, quoteID uint, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Invalid("body", "required")
	}
	var c models.Comment
	err := transaction(ctx, s.db, s.notifier, func(tx *gorm.DB, mails *[]notify.Mail) error {
		q, err := visibleQuote(tx, actor, quoteID)
		if err != nil {
			return err
		}
		if q.IsDraft() {
			return apperr.State("drafts cannot be commented")
		}
		c = models.Comment{QuoteID: q.ID, UserID: actor.ID, Body: body}
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}

		recipient, link := q.AdminID, fmt.Sprintf("/admin/quotes/%d", q.ID)
		if actor.IsAdmin() {
			recipient, link = q.GetUserID(), fmt.Sprintf("/client/quotes/%d", q.ID)
		}
		if recipient == actor.ID {
			return nil
		}
		title := "New comment on " + q.ProjectName
		if err := s.notifier.Create(tx, notify.Event{
			UserID:  recipient,
			Type:    models.NotifyQuoteComment,
			Title:   title,
			Message: body,
			Link:    link,
			Data:    map[string]any{"quoteId": q.ID, "commentId": c.ID},
		}); err != nil {
			return err
		}
		if recipient != 0 {
			*mails = append(*mails, notify.Mail{
				To:      userEmail(tx, recipient),
				Subject: title,
				Data:    map[string]any{"Title": title, "Message": body, "Link": link},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CommentService) List(ctx context.Context, actor Actor, quoteID uint) ([]models.Comment, error) {
	db := s.db.WithContext(ctx)
	if _, err := visibleQuote(db, actor, quoteID); err != nil {
		return nil, err
	}
	var out []models.Comment
	err := db.Preload("Author").
		Where("quote_id = ?", quoteID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}
