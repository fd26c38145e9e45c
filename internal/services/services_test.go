package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/notify"
	"github.com/diewo77/procurement/internal/storage"
)

type fixture struct {
	db         *gorm.DB
	mailer     *notify.MemoryMailer
	notifier   *notify.Notifier
	blobs      *storage.Memory
	admin      models.User
	client     models.User
	contractor models.User
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: setupDB(t), mailer: &notify.MemoryMailer{}, blobs: storage.NewMemory()}
	n, err := notify.New(f.mailer, "no-reply@example.com", "https://portal.example.com")
	require.NoError(t, err)
	f.notifier = n

	f.admin = f.user(t, "admin@example.com", models.RoleAdmin, nil)
	f.client = f.user(t, "client@example.com", models.RoleClient, nil)
	f.contractor = f.user(t, "contractor@example.com", models.RoleContractor, &f.admin)
	return f
}

func (f *fixture) user(t *testing.T, email string, role models.Role, parent *models.User) models.User {
	t.Helper()
	u := models.User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: "x", Role: role}
	if parent != nil {
		u.ParentID = &parent.ID
		u.OrganizationID = parent.OrganizationID
	}
	require.NoError(t, f.db.Create(&u).Error)
	if parent == nil {
		u.OrganizationID = u.ID
		require.NoError(t, f.db.Model(&u).Update("organization_id", u.ID).Error)
	}
	return u
}

func (f *fixture) as(u models.User) Actor { return Actor{ID: u.ID, Role: u.Role} }

func (f *fixture) request(t *testing.T, status models.RequestStatus) models.Request {
	t.Helper()
	r := models.Request{ClientID: f.client.ID, ProjectName: "Lobby refit", Status: status}
	require.NoError(t, f.db.Create(&r).Error)
	return r
}

func (f *fixture) notifications(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id ASC").Find(&out).Error)
	return out
}

var ctx = context.Background()

func ptr[T any](v T) *T { return &v }
