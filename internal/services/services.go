// Package services holds the business rules of the procurement domain. Every
// multi-row change runs in one gorm transaction; notification rows are written
// in that transaction and emails go out after commit.
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/metrics"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/notify"
	"github.com/diewo77/procurement/internal/pricing"
)

// Actor is the signed-in user performing an operation. Role is the role
// currently stored for the user, not the one carried by the session token.
type Actor struct {
	ID   uint
	Role models.Role
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// ItemInput is a quote or estimate line as submitted by the caller.
type ItemInput struct {
	ServiceID   *uint           `json:"serviceId,omitempty"`
	ServiceName string          `json:"serviceName"`
	Description string          `json:"description"`
	Unit        models.ItemUnit `json:"unit"`
	UnitPrice   float64         `json:"unitPrice"`
	Quantity    float64         `json:"quantity"`
}

func (in ItemInput) line() pricing.Line {
	unit := in.Unit
	if unit == "" {
		unit = models.UnitFlat
	}
	return pricing.Line{Unit: unit, UnitPrice: in.UnitPrice, Quantity: in.Quantity}
}

func lines(items []ItemInput) []pricing.Line {
	out := make([]pricing.Line, len(items))
	for i, it := range items {
		out[i] = it.line()
	}
	return out
}

// first loads one row by id; a missing row becomes a NotFound error naming what.
func first[T any](tx *gorm.DB, id uint, what string) (*T, error) {
	var row T
	if err := tx.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(what)
		}
		return nil, fmt.Errorf("load %s %d: %w", what, id, err)
	}
	return &row, nil
}

// casUpdate applies updates only if the row still has the expected version,
// bumping it. Zero affected rows is a Conflict.
func casUpdate(tx *gorm.DB, model any, entity string, id uint, version int, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update %s %d: %w", entity, id, res.Error)
	}
	if res.RowsAffected == 0 {
		metrics.Conflict(entity)
		return apperr.Conflict(entity)
	}
	return nil
}

// transaction runs fn and, once it has committed, delivers the mails it queued.
func transaction(ctx context.Context, db *gorm.DB, n *notify.Notifier, fn func(tx *gorm.DB, out *[]notify.Mail) error) error {
	var mails []notify.Mail
	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, &mails)
	}); err != nil {
		return err
	}
	if n != nil {
		n.Deliver(ctx, mails...)
	}
	return nil
}

func userEmail(tx *gorm.DB, id uint) string {
	var u models.User
	if err := tx.Select("id", "email").First(&u, id).Error; err != nil {
		return ""
	}
	return u.Email
}
