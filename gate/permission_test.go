package gate_test

import (
	"testing"

	"github.com/diewo77/procurement/gate"
)

func TestPermission_Parse(t *testing.T) {
	tests := []struct {
		perm    gate.Permission
		wantRes string
		wantAct gate.Action
	}{
		{"quote:approve", "quote", gate.ActionApprove},
		{"labor_request:submit", "labor_request", gate.ActionSubmit},
		{"invalid", "", ""},
	}
	for _, tt := range tests {
		res, act := tt.perm.Parse()
		if res != tt.wantRes || act != tt.wantAct {
			t.Errorf("%q.Parse() = (%q, %q), want (%q, %q)", tt.perm, res, act, tt.wantRes, tt.wantAct)
		}
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		name      string
		granted   gate.Permission
		requested gate.Permission
		want      bool
	}{
		{"exact", "quote:view", "quote:view", true},
		{"other action", "quote:view", "quote:delete", false},
		{"other resource", "quote:view", "request:view", false},
		{"superadmin", gate.PermissionSuperAdmin, "invoice:approve", true},
		{"resource wildcard", "notification:*", "notification:update", true},
		{"resource wildcard other resource", "notification:*", "quote:update", false},
		{"malformed grant", "*", "quote:view", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.granted.Matches(tt.requested); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPermissions(t *testing.T) {
	perms := gate.Permissions("invoice", gate.ActionList, gate.ActionCreate)
	if len(perms) != 2 || perms[0] != "invoice:list" || perms[1] != "invoice:create" {
		t.Errorf("unexpected permissions: %v", perms)
	}
}

func TestStaticProfile_Permissions(t *testing.T) {
	p := gate.NewStaticProfile("client", "request:view", "quote:approve", "request:view")
	got := p.Permissions()
	if len(got) != 2 || got[0] != "quote:approve" || got[1] != "request:view" {
		t.Errorf("Permissions() = %v", got)
	}
	if !p.HasPermission("quote:approve") || p.HasPermission("quote:delete") {
		t.Error("HasPermission mismatch")
	}
}
