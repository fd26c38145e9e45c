package db

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/internal/config"
	"github.com/diewo77/procurement/internal/models"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestMigrateAutoCreatesTables(t *testing.T) {
	d := openMemory(t)
	if err := Migrate(d, config.DatabaseConfig{Driver: "sqlite"}, false); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"users", "quotes", "quote_items", "labor_requests", "contractor_invoices", "documents", "notifications"} {
		if !d.Migrator().HasTable(table) {
			t.Errorf("missing table %s", table)
		}
	}
}

func TestMigrateSQLRequiresPostgres(t *testing.T) {
	d := openMemory(t)
	if err := Migrate(d, config.DatabaseConfig{Driver: "sqlite"}, true); err == nil {
		t.Fatal("expected error for sql migrations on sqlite")
	}
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite"} {
		if _, err := Dialector(config.DatabaseConfig{Driver: driver}); err != nil {
			t.Errorf("%s: %v", driver, err)
		}
	}
	if _, err := Dialector(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestSeedIdempotent(t *testing.T) {
	d := openMemory(t)
	if err := AutoMigrate(d); err != nil {
		t.Fatal(err)
	}
	opts := SeedOptions{AdminEmail: "Boss@Example.com", AdminPassword: "s3cret-pass"}
	ctx := context.Background()
	if err := Seed(ctx, d, opts); err != nil {
		t.Fatal(err)
	}
	if err := Seed(ctx, d, opts); err != nil {
		t.Fatal(err)
	}

	var services, admins int64
	d.Model(&models.Service{}).Count(&services)
	d.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins)
	if services != int64(len(baseServices)) {
		t.Fatalf("expected %d services got %d", len(baseServices), services)
	}
	if admins != 1 {
		t.Fatalf("expected 1 admin got %d", admins)
	}

	var admin models.User
	if err := d.Where("email = ?", "boss@example.com").First(&admin).Error; err != nil {
		t.Fatal(err)
	}
	if admin.OrganizationID != admin.ID {
		t.Errorf("admin organization = %d, want %d", admin.OrganizationID, admin.ID)
	}
	if !auth.CheckPassword(admin.PasswordHash, "s3cret-pass") {
		t.Error("seeded password does not verify")
	}
}

func TestSeedAdminNeedsPassword(t *testing.T) {
	d := openMemory(t)
	if err := AutoMigrate(d); err != nil {
		t.Fatal(err)
	}
	if err := Seed(context.Background(), d, SeedOptions{AdminEmail: "a@example.com"}); err == nil {
		t.Fatal("expected error without password")
	}
}
