package policy_test

import (
	"context"
	"testing"

	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/policy"
)

type ownedThing struct{ userID uint }

func (o *ownedThing) GetUserID() uint { return o.userID }

type anonymousThing struct{ ID uint }

func TestOwnershipPolicy(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	ctx := context.Background()

	tests := []struct {
		name     string
		user     uint
		resource any
		want     bool
	}{
		{"nil resource", 1, nil, true},
		{"owner", 42, &ownedThing{userID: 42}, true},
		{"non-owner", 99, &ownedThing{userID: 42}, false},
		{"not ownable", 1, &anonymousThing{ID: 1}, false},
		{"quote without client", 5, &models.Quote{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Can(ctx, tt.user, gate.ActionView, tt.resource); got != tt.want {
				t.Errorf("Can() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParticipantPolicy(t *testing.T) {
	p := policy.NewParticipantPolicy()
	ctx := context.Background()
	lr := &models.LaborRequest{AdminID: 1, ContractorID: 2}

	if !p.Can(ctx, 1, gate.ActionApprove, lr) {
		t.Error("author admin should be allowed")
	}
	if !p.Can(ctx, 2, gate.ActionSubmit, lr) {
		t.Error("assignee should be allowed")
	}
	if p.Can(ctx, 3, gate.ActionView, lr) {
		t.Error("outsider should be denied")
	}
}

func TestAdminBypassPolicy(t *testing.T) {
	isAdmin := func(_ context.Context, id uint) bool { return id == 1 }
	p := policy.NewAdminBypassPolicy(policy.NewOwnershipPolicy(), isAdmin)
	ctx := context.Background()
	q := &ownedThing{userID: 7}

	if !p.Can(ctx, 1, gate.ActionView, q) {
		t.Error("admin should bypass ownership")
	}
	if !p.Can(ctx, 7, gate.ActionView, q) {
		t.Error("owner should be allowed")
	}
	if p.Can(ctx, 8, gate.ActionView, q) {
		t.Error("other user should be denied")
	}
}

func TestProfiles(t *testing.T) {
	tests := []struct {
		role models.Role
		perm gate.Permission
		want bool
	}{
		{models.RoleAdmin, "quote:update", true},
		{models.RoleAdmin, "anything:at_all", true},
		{models.RoleClient, "quote:approve", true},
		{models.RoleClient, "quote:update", false},
		{models.RoleClient, "labor_request:submit", false},
		{models.RoleContractor, "labor_request:submit", true},
		{models.RoleContractor, "contractor_invoice:create", true},
		{models.RoleContractor, "quote:approve", false},
		{models.RoleContractor, "notification:list", true},
	}
	for _, tt := range tests {
		p := policy.ProfileFor(tt.role)
		if p == nil {
			t.Fatalf("no profile for %s", tt.role)
		}
		if got := p.HasPermission(tt.perm); got != tt.want {
			t.Errorf("%s %s = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
	if policy.ProfileFor("guest") != nil {
		t.Error("unknown role should have no profile")
	}
}
