package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/internal/models"
)

// SeedOptions configures Seed. An empty AdminEmail skips the admin account.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

var baseServices = []models.Service{
	{Name: "Design consultation", Description: "Space planning and furniture selection", Unit: models.UnitHourly, UnitPrice: 95, Active: true},
	{Name: "Furniture delivery", Description: "Local delivery and placement", Unit: models.UnitFlat, UnitPrice: 150, Active: true},
	{Name: "Assembly", Description: "On-site assembly of flat-pack furniture", Unit: models.UnitHourly, UnitPrice: 65, Active: true},
	{Name: "Installation", Description: "Wall mounting and fixture installation", Unit: models.UnitHourly, UnitPrice: 80, Active: true},
	{Name: "Removal and disposal", Description: "Haul-away of existing furniture", Unit: models.UnitFlat, UnitPrice: 200, Active: true},
}

// Seed inserts the baseline catalog and the bootstrap admin. It is idempotent.
func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions) error {
	db = db.WithContext(ctx)
	for _, s := range baseServices {
		svc := s
		if err := db.Where(models.Service{Name: svc.Name}).FirstOrCreate(&svc).Error; err != nil {
			return fmt.Errorf("seed service %q: %w", svc.Name, err)
		}
	}
	if opts.AdminEmail == "" {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if opts.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD is required to seed the admin account")
	}
	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}
	name := opts.AdminName
	if name == "" {
		name = "Administrator"
	}
	return db.Transaction(func(tx *gorm.DB) error {
		admin := models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleAdmin}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		if err := tx.Model(&admin).Update("organization_id", admin.ID).Error; err != nil {
			return err
		}
		log.WithField("email", email).Info("seeded admin account")
		return nil
	})
}
