package policy

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/internal/models"
)

// DBRoleResolver maps a user id to the profile of the role currently stored in
// the database, ignoring whatever role the session token carries.
type DBRoleResolver struct {
	DB *gorm.DB
}

func NewDBRoleResolver(db *gorm.DB) *DBRoleResolver {
	return &DBRoleResolver{DB: db}
}

// Resolve returns nil for unknown or deleted users.
func (r *DBRoleResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("id", "role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ProfileFor(user.Role), nil
}
