// Package gate is a small authorization layer: profiles grant "resource:action"
// permissions, and optional per-resource policies add ownership rules on top.
// It knows nothing about the domain; the user type is a type parameter.
package gate

import "context"

// HybridGate combines profile permissions with resource policies.
//
//  1. a zero user is ErrUnauthorized;
//  2. the user's profile must grant resource:action, else ErrForbidden
//     (ErrUnauthorized when the user has no profile at all);
//  3. when a resource is given and a policy is registered for its type,
//     the policy must allow it, else ErrForbidden.
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register sets the policy for a resource type, replacing any previous one.
func (g *HybridGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Profile resolves the user's current profile.
func (g *HybridGate[U]) Profile(ctx context.Context, user U) (Profile, error) {
	var zero U
	if user == zero {
		return nil, ErrUnauthorized
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUnauthorized
	}
	return profile, nil
}

// Authorize returns nil when user may perform action on resource.
func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	profile, err := g.Profile(ctx, user)
	if err != nil {
		return err
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrForbidden
	}
	if resource == nil {
		return nil
	}
	if policy, ok := g.policies[resourceType]; ok && !policy.Can(ctx, user, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can is Authorize as a bool.
func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks the profile permission only, without any resource policy.
func (g *HybridGate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	return g.Authorize(ctx, user, action, resourceType, nil) == nil
}
