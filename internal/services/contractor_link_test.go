package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
)

func TestContractorLink_Approve(t *testing.T) {
	f := newFixture(t)
	var invalidated []uint
	svc := NewContractorLinkService(f.db, f.notifier, func(id uint) { invalidated = append(invalidated, id) })

	cr, err := svc.Request(ctx, f.as(f.client), LinkInput{AdminID: f.admin.ID, Message: "We do installs"})
	require.NoError(t, err)
	assert.Equal(t, models.LinkPending, cr.Status)

	_, err = svc.Request(ctx, f.as(f.client), LinkInput{AdminID: f.admin.ID})
	assert.Equal(t, "duplicate_pending", fieldCode(err, "adminId"))

	pending, err := svc.ListPending(ctx, f.as(f.admin))
	require.NoError(t, err)
	require.Len(t, pending, 1)

	got, err := svc.Approve(ctx, f.as(f.admin), cr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LinkApproved, got.Status)
	assert.NotNil(t, got.DecidedAt)
	assert.Equal(t, []uint{f.client.ID}, invalidated)

	var u models.User
	require.NoError(t, f.db.First(&u, f.client.ID).Error)
	assert.Equal(t, models.RoleContractor, u.Role)
	require.NotNil(t, u.ParentID)
	assert.Equal(t, f.admin.ID, *u.ParentID)
	assert.Equal(t, f.admin.OrganizationID, u.OrganizationID)

	notes := f.notifications(t, f.client.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyContractorApproved, notes[0].Type)

	_, err = svc.Approve(ctx, f.as(f.admin), cr.ID)
	require.ErrorIs(t, err, apperr.ErrState)
}

func TestContractorLink_ApproveRollsBack(t *testing.T) {
	f := newFixture(t)
	called := false
	svc := NewContractorLinkService(f.db, f.notifier, func(uint) { called = true })
	cr, err := svc.Request(ctx, f.as(f.client), LinkInput{AdminID: f.admin.ID})
	require.NoError(t, err)

	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:fail_users", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			_ = tx.AddError(errors.New("users table unavailable"))
		}
	}))

	_, err = svc.Approve(ctx, f.as(f.admin), cr.ID)
	require.Error(t, err)
	assert.False(t, called)

	var stored models.ContractorRequest
	require.NoError(t, f.db.First(&stored, cr.ID).Error)
	assert.Equal(t, models.LinkPending, stored.Status)
	var u models.User
	require.NoError(t, f.db.First(&u, f.client.ID).Error)
	assert.Equal(t, models.RoleClient, u.Role)
	assert.Nil(t, u.ParentID)
	assert.Empty(t, f.notifications(t, f.client.ID))
}

func TestContractorLink_Guards(t *testing.T) {
	f := newFixture(t)
	svc := NewContractorLinkService(f.db, f.notifier, nil)

	_, err := svc.Request(ctx, f.as(f.client), LinkInput{AdminID: f.contractor.ID})
	assert.Equal(t, "not_an_admin", fieldCode(err, "adminId"))

	cr, err := svc.Request(ctx, f.as(f.client), LinkInput{AdminID: f.admin.ID})
	require.NoError(t, err)

	otherAdmin := f.user(t, "admin2@example.com", models.RoleAdmin, nil)
	_, err = svc.Approve(ctx, f.as(otherAdmin), cr.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := svc.Reject(ctx, f.as(f.admin), cr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LinkRejected, got.Status)

	_, err = svc.Approve(ctx, f.as(f.admin), cr.ID)
	require.ErrorIs(t, err, apperr.ErrState)

	_, err = svc.Request(ctx, f.as(f.client), LinkInput{AdminID: f.admin.ID})
	require.NoError(t, err, "a new request is allowed once the previous one is decided")
}

func TestContractorLink_SecondAdminCannotRelink(t *testing.T) {
	f := newFixture(t)
	svc := NewContractorLinkService(f.db, f.notifier, nil)
	otherAdmin := f.user(t, "admin2@example.com", models.RoleAdmin, nil)

	mine, err := svc.Request(ctx, f.as(f.client), LinkInput{AdminID: f.admin.ID})
	require.NoError(t, err)
	theirs, err := svc.Request(ctx, f.as(f.client), LinkInput{AdminID: otherAdmin.ID})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, f.as(f.admin), mine.ID)
	require.NoError(t, err)

	var closed models.ContractorRequest
	require.NoError(t, f.db.First(&closed, theirs.ID).Error)
	assert.Equal(t, models.LinkRejected, closed.Status)
	assert.NotNil(t, closed.DecidedAt)

	_, err = svc.Approve(ctx, f.as(otherAdmin), theirs.ID)
	require.ErrorIs(t, err, apperr.ErrState)

	var u models.User
	require.NoError(t, f.db.First(&u, f.client.ID).Error)
	require.NotNil(t, u.ParentID)
	assert.Equal(t, f.admin.ID, *u.ParentID)
	assert.Equal(t, f.admin.OrganizationID, u.OrganizationID)
}

func TestContractorLink_ApproveRequiresClient(t *testing.T) {
	f := newFixture(t)
	svc := NewContractorLinkService(f.db, f.notifier, nil)
	cr, err := svc.Request(ctx, f.as(f.client), LinkInput{AdminID: f.admin.ID})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.client.ID).Update("role", models.RoleContractor).Error)

	_, err = svc.Approve(ctx, f.as(f.admin), cr.ID)
	require.ErrorIs(t, err, apperr.ErrState)

	var stored models.ContractorRequest
	require.NoError(t, f.db.First(&stored, cr.ID).Error)
	assert.Equal(t, models.LinkPending, stored.Status)
	var u models.User
	require.NoError(t, f.db.First(&u, f.client.ID).Error)
	assert.Nil(t, u.ParentID)
}
