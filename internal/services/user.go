package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/internal/apperr"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/validation"
)

// MinPasswordLength applies to registration and team member creation.
const MinPasswordLength = 8

type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
}

type TeamMemberInput struct {
	RegisterInput
	Role models.Role `json:"role"`
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (in RegisterInput) validate(v validation.Violations) {
	validation.Required("name", in.Name, v)
	validation.Email("email", strings.TrimSpace(in.Email), v)
	validation.MinLength("password", in.Password, MinPasswordLength, v)
}

func (s *UserService) create(tx *gorm.DB, in RegisterInput, role models.Role, parent *models.User) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	var n int64
	if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return nil, apperr.Invalid("email", "taken")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		CompanyName:  strings.TrimSpace(in.CompanyName),
		PasswordHash: hash,
		Role:         role,
	}
	if parent != nil {
		u.ParentID = &parent.ID
		u.OrganizationID = parent.OrganizationID
	}
	if err := tx.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if parent == nil {
		u.OrganizationID = u.ID
		if err := tx.Model(&u).Update("organization_id", u.ID).Error; err != nil {
			return nil, fmt.Errorf("set organization: %w", err)
		}
	}
	return &u, nil
}

// Register creates a client account that roots its own organisation.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	v := validation.Violations{}
	in.validate(v)
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}
	var u *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		u, err = s.create(tx, in, models.RoleClient, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperr.Error{Kind: apperr.KindAuth, Message: "invalid credentials"}
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, &apperr.Error{Kind: apperr.KindAuth, Message: "invalid credentials"}
	}
	return &u, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return first[models.User](s.db.WithContext(ctx), id, "user")
}

// Exists reports whether a user id still names a live account.
func (s *UserService) Exists(ctx context.Context, id uint) bool {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}

// Team lists the other users of the admin's organisation.
func (s *UserService) Team(ctx context.Context, actor Actor) ([]models.UserSummary, error) {
	db := s.db.WithContext(ctx)
	admin, err := first[models.User](db, actor.ID, "user")
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = db.Where("organization_id = ? AND id <> ?", admin.OrganizationID, admin.ID).
		Order("role ASC, name ASC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list team: %w", err)
	}
	out := make([]models.UserSummary, len(users))
	for i := range users {
		out[i] = users[i].Summary()
	}
	return out, nil
}

// AddTeamMember creates a client or contractor managed by the admin.
func (s *UserService) AddTeamMember(ctx context.Context, actor Actor, in TeamMemberInput) (*models.User, error) {
	v := validation.Violations{}
	in.validate(v)
	if in.Role == "" {
		in.Role = models.RoleContractor
	}
	validation.OneOf("role", string(in.Role), []string{string(models.RoleClient), string(models.RoleContractor)}, v)
	if !v.Empty() {
		return nil, apperr.Validation(v)
	}
	var u *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin, err := first[models.User](tx, actor.ID, "user")
		if err != nil {
			return err
		}
		u, err = s.create(tx, in.RegisterInput, in.Role, admin)
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// AdminDirectory is the public listing of admins a client may link to.
type AdminDirectory struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName,omitempty"`
}

func (s *UserService) ListAdmins(ctx context.Context) ([]AdminDirectory, error) {
	var out []AdminDirectory
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("id", "name", "company_name").
		Where("role = ?", models.RoleAdmin).
		Order("name ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return out, nil
}
