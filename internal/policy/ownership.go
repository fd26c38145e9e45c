package policy

import (
	"context"

	"github.com/diewo77/procurement/gate"
)

// Ownable is implemented by models that belong to one user.
type Ownable interface {
	GetUserID() uint
}

// Authored is implemented by models that also have an admin author.
type Authored interface {
	GetAuthorID() uint
}

// OwnershipPolicy allows the owner of the resource. Resources that are not
// Ownable are denied.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy { return &OwnershipPolicy{} }

func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}

// ParticipantPolicy allows the owner and the admin author of a resource,
// e.g. the assignee contractor and the issuing admin of a labor request.
type ParticipantPolicy struct{}

func NewParticipantPolicy() *ParticipantPolicy { return &ParticipantPolicy{} }

func (p *ParticipantPolicy) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	if a, ok := resource.(Authored); ok && a.GetAuthorID() == userID {
		return true
	}
	return (&OwnershipPolicy{}).Can(ctx, userID, action, resource)
}

// AdminBypassPolicy lets admins through and defers to inner for everyone else.
type AdminBypassPolicy struct {
	inner   gate.Policy[uint]
	isAdmin func(ctx context.Context, userID uint) bool
}

func NewAdminBypassPolicy(inner gate.Policy[uint], isAdmin func(ctx context.Context, userID uint) bool) *AdminBypassPolicy {
	return &AdminBypassPolicy{inner: inner, isAdmin: isAdmin}
}

func (p *AdminBypassPolicy) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	if p.isAdmin(ctx, userID) {
		return true
	}
	return p.inner.Can(ctx, userID, action, resource)
}
