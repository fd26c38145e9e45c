package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
)

func TestInvoiceLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := NewInvoiceService(f.db, f.notifier)

	_, err := svc.Submit(ctx, f.as(f.client), InvoiceInput{ProjectName: "x", Amount: 10})
	require.ErrorIs(t, err, apperr.ErrState, "users without a parent have nobody to invoice")

	_, err = svc.Submit(ctx, f.as(f.contractor), InvoiceInput{ProjectName: "x", Amount: 0})
	assert.Equal(t, "must_be_positive", fieldCode(err, "amount"))

	inv, err := svc.Submit(ctx, f.as(f.contractor), InvoiceInput{ProjectName: "Lobby", Description: "Install", Amount: 840, ClientEmail: " Client@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, inv.AdminID)
	assert.Equal(t, "client@example.com", inv.ClientEmail)
	assert.Len(t, f.notifications(t, f.admin.ID), 1)

	admin := f.as(f.admin)
	_, err = svc.Decide(ctx, admin, inv.ID, models.InvoicePaid)
	require.ErrorIs(t, err, apperr.ErrState)

	inv, err = svc.Decide(ctx, admin, inv.ID, models.InvoiceApproved)
	require.NoError(t, err)
	inv, err = svc.Decide(ctx, admin, inv.ID, models.InvoicePaid)
	require.NoError(t, err)
	assert.NotNil(t, inv.PaidAt)
	_, err = svc.Decide(ctx, admin, inv.ID, models.InvoiceRejected)
	require.ErrorIs(t, err, apperr.ErrState)
	assert.Len(t, f.notifications(t, f.contractor.ID), 2)

	mine, err := svc.ListForContractor(ctx, f.as(f.contractor))
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	_, err = svc.Get(ctx, f.as(f.client), inv.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.db)

	_, err := svc.CreateService(ctx, ServiceInput{Name: "", UnitPrice: -1, Unit: "daily"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	desk, err := svc.CreateService(ctx, ServiceInput{Name: "Desk", UnitPrice: 300})
	require.NoError(t, err)
	assert.Equal(t, models.UnitFlat, desk.Unit)
	assert.True(t, desk.Active)

	_, err = svc.CreateService(ctx, ServiceInput{Name: "desk", UnitPrice: 1})
	assert.Equal(t, "taken", fieldCode(err, "name"))

	_, err = svc.UpdateService(ctx, desk.ID, ServiceInput{Name: "Desk", UnitPrice: 320, Active: ptr(false)})
	require.NoError(t, err)
	active, err := svc.ListServices(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := svc.ListServices(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 320.0, all[0].UnitPrice)

	require.NoError(t, svc.DeleteService(ctx, desk.ID))
	require.ErrorIs(t, svc.DeleteService(ctx, desk.ID), apperr.ErrNotFound)
}

func TestPricingTemplates(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.db)
	admin := f.as(f.admin)

	_, err := svc.CreateTemplate(ctx, admin, TemplateInput{Name: "Office"})
	assert.Equal(t, "required", fieldCode(err, "items"))

	tpl, err := svc.CreateTemplate(ctx, admin, TemplateInput{Name: "Office", Items: sampleItems()})
	require.NoError(t, err)
	var items []models.TemplateItem
	require.NoError(t, json.Unmarshal(tpl.Items, &items))
	require.Len(t, items, 2)
	assert.Equal(t, models.UnitHourly, items[1].Unit)

	other := f.user(t, "admin2@example.com", models.RoleAdmin, nil)
	list, err := svc.ListTemplates(ctx, f.as(other))
	require.NoError(t, err)
	assert.Empty(t, list)
	require.ErrorIs(t, svc.DeleteTemplate(ctx, f.as(other), tpl.ID), apperr.ErrForbidden)
	require.NoError(t, svc.DeleteTemplate(ctx, admin, tpl.ID))
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.db)

	u, err := svc.Register(ctx, RegisterInput{Name: "Dana", Email: " Dana@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, u.Role)
	assert.Equal(t, "dana@example.com", u.Email)
	assert.Equal(t, u.ID, u.OrganizationID)

	_, err = svc.Register(ctx, RegisterInput{Name: "Dana", Email: "dana@example.com", Password: "correct-horse"})
	assert.Equal(t, "taken", fieldCode(err, "email"))
	_, err = svc.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "short"})
	assert.Equal(t, "too_short", fieldCode(err, "password"))

	_, err = svc.Authenticate(ctx, "DANA@example.com", "correct-horse")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "dana@example.com", "wrong")
	require.ErrorIs(t, err, apperr.ErrAuth)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct-horse")
	require.ErrorIs(t, err, apperr.ErrAuth)

	member, err := svc.AddTeamMember(ctx, f.as(f.admin), TeamMemberInput{
		RegisterInput: RegisterInput{Name: "Sam", Email: "sam@example.com", Password: "long-enough"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleContractor, member.Role)
	assert.Equal(t, f.admin.OrganizationID, member.OrganizationID)

	_, err = svc.AddTeamMember(ctx, f.as(f.admin), TeamMemberInput{
		RegisterInput: RegisterInput{Name: "Al", Email: "al@example.com", Password: "long-enough"},
		Role:          models.RoleAdmin,
	})
	assert.Equal(t, "invalid_choice", fieldCode(err, "role"))

	team, err := svc.Team(ctx, f.as(f.admin))
	require.NoError(t, err)
	assert.Len(t, team, 2, "fixture contractor and the new member")

	admins, err := svc.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, f.admin.ID, admins[0].ID)

	assert.True(t, svc.Exists(ctx, u.ID))
	assert.False(t, svc.Exists(ctx, 9999))
}

func TestContactSubmission(t *testing.T) {
	f := newFixture(t)
	svc := NewContactService(f.db, f.notifier, "owner@example.com")

	_, err := svc.Submit(ctx, ContactInput{Name: "Jo", Email: "not-an-email", Message: "hi"})
	assert.Equal(t, "invalid_email", fieldCode(err, "email"))

	_, err = svc.Submit(ctx, ContactInput{Name: "Jo", Email: "jo@example.com", Message: "Need 40 chairs"})
	require.NoError(t, err)
	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"owner@example.com"}, sent[0].To)
	assert.Contains(t, string(sent[0].Raw), "Need 40 chairs")

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	svc := NewNotificationService(f.db)
	now := time.Now()
	rows := []models.Notification{
		{UserID: f.client.ID, Type: "a", Title: "old read", Read: true, CreatedAt: now.Add(-time.Hour)},
		{UserID: f.client.ID, Type: "a", Title: "old unread", CreatedAt: now.Add(-time.Hour)},
		{UserID: f.client.ID, Type: "a", Title: "new unread", CreatedAt: now},
		{UserID: f.admin.ID, Type: "a", Title: "someone else's"},
	}
	require.NoError(t, f.db.Create(&rows).Error)

	list, err := svc.List(ctx, f.as(f.client), 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new unread", list[0].Title)
	assert.Equal(t, "old unread", list[1].Title)
	assert.Equal(t, "old read", list[2].Title)

	require.ErrorIs(t, svc.MarkRead(ctx, f.as(f.client), rows[3].ID), apperr.ErrForbidden)
	require.NoError(t, svc.MarkRead(ctx, f.as(f.client), rows[1].ID))
	n, err := svc.UnreadCount(ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	changed, err := svc.MarkAllRead(ctx, f.as(f.client))
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
}

func TestDocuments(t *testing.T) {
	f := newFixture(t)
	svc := NewDocumentService(f.db, f.blobs)
	_, lr := newLabor(t, f)

	_, err := svc.Upload(ctx, f.as(f.contractor), models.DocumentOwnerLaborRequest, lr.ID, Upload{
		Filename: "big.pdf", Size: MaxDocumentSize + 1, Body: strings.NewReader(""),
	})
	assert.Equal(t, "too_large", fieldCode(err, "file"))

	_, err = svc.Upload(ctx, f.as(f.client), models.DocumentOwnerLaborRequest, lr.ID, Upload{
		Filename: "x.pdf", Size: 1, Body: strings.NewReader("x"),
	})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	body := []byte("photo bytes")
	doc, err := svc.Upload(ctx, f.as(f.contractor), models.DocumentOwnerLaborRequest, lr.ID, Upload{
		Filename: "../site photo.JPG", Size: int64(len(body)), Body: bytes.NewReader(body),
	})
	require.NoError(t, err)
	assert.Equal(t, "site photo.JPG", doc.Name)
	assert.Equal(t, "image/jpeg", doc.ContentType)
	stored, ok := f.blobs.Get(doc.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, body, stored)

	list, err := svc.List(ctx, f.as(f.admin), models.DocumentOwnerLaborRequest, lr.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, url, err := svc.DownloadURL(ctx, f.as(f.admin), doc.ID)
	require.NoError(t, err)
	assert.Contains(t, url, doc.ObjectKey)
	_, _, err = svc.DownloadURL(ctx, f.as(f.client), doc.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestDashboards(t *testing.T) {
	f := newFixture(t)
	f.request(t, models.RequestPending)
	f.request(t, models.RequestQuoted)
	quotes := NewQuoteService(f.db, f.notifier)
	_, err := quotes.Create(ctx, f.as(f.admin), QuoteInput{ProjectName: "x", ClientID: &f.client.ID, Status: models.QuoteSent, Items: sampleItems()})
	require.NoError(t, err)
	_, _ = newLabor(t, f)
	svc := NewDashboardService(f.db)

	d, err := svc.For(ctx, f.as(f.admin))
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Counts["requests_pending"])
	assert.Equal(t, int64(1), d.Counts["quotes_sent"])

	d, err = svc.For(ctx, f.as(f.client))
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Counts["requests_pending"])
	assert.Equal(t, int64(1), d.Counts["requests_quoted"])
	assert.Equal(t, int64(1), d.Counts["quotes_open"])
	assert.Equal(t, int64(1), d.UnreadNotifications)

	d, err = svc.For(ctx, f.as(f.contractor))
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Counts["labor_requests_pending"])
	assert.Equal(t, int64(1), d.UnreadNotifications)
}
