package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
)

// unreadFirst quotes the column since READ is reserved in MySQL.
var unreadFirst = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "read"}},
	{Column: clause.Column{Name: "created_at"}, Desc: true},
	{Column: clause.Column{Name: "id"}, Desc: true},
}}

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// List returns the actor's notifications, unread first and newest first.
func (s *NotificationService) List(ctx context.Context, actor Actor, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", actor.ID).
		Order(unreadFirst).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := first[models.Notification](tx, id, "notification")
		if err != nil {
			return err
		}
		if n.UserID != actor.ID {
			return apperr.Forbidden("not your notification")
		}
		return tx.Model(n).Update("read", true).Error
	})
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where(map[string]any{"user_id": actor.ID, "read": false}).
		Update("read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where(map[string]any{"user_id": userID, "read": false}).
		Count(&n).Error
	return n, err
}
