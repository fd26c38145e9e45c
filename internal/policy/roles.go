package policy

import (
	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/internal/models"
)

// Resource types used in permissions and policies.
const (
	ResourceQuote        = "quote"
	ResourceComment      = "comment"
	ResourceRequest      = "request"
	ResourceProject      = "project"
	ResourceLabor        = "labor_request"
	ResourceInvoice      = "contractor_invoice"
	ResourceLink         = "contractor_request"
	ResourceService      = "service"
	ResourceTemplate     = "pricing_template"
	ResourceTeam         = "team"
	ResourceContact      = "contact_submission"
	ResourceNotification = "notification"
	ResourceDocument     = "document"
	ResourceDashboard    = "dashboard"
)

func join(groups ...[]gate.Permission) []gate.Permission {
	var out []gate.Permission
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var common = join(
	gate.Permissions(ResourceNotification, gate.ActionList, gate.ActionUpdate),
	gate.Permissions(ResourceService, gate.ActionList),
	gate.Permissions(ResourceDocument, gate.ActionCreate, gate.ActionList, gate.ActionView),
	gate.Permissions(ResourceDashboard, gate.ActionView),
)

var profiles = map[models.Role]gate.Profile{
	models.RoleAdmin: gate.NewStaticProfile(string(models.RoleAdmin), gate.PermissionSuperAdmin),
	models.RoleClient: gate.NewStaticProfile(string(models.RoleClient), join(common,
		gate.Permissions(ResourceQuote, gate.ActionView, gate.ActionList, gate.ActionApprove),
		gate.Permissions(ResourceComment, gate.ActionCreate, gate.ActionList),
		gate.Permissions(ResourceRequest, gate.ActionView, gate.ActionList, gate.ActionCreate, gate.ActionDelete),
		gate.Permissions(ResourceProject, gate.ActionView, gate.ActionList, gate.ActionCreate),
		gate.Permissions(ResourceLink, gate.ActionCreate),
	)...),
	models.RoleContractor: gate.NewStaticProfile(string(models.RoleContractor), join(common,
		gate.Permissions(ResourceLabor, gate.ActionView, gate.ActionList, gate.ActionSubmit),
		gate.Permissions(ResourceInvoice, gate.ActionView, gate.ActionList, gate.ActionCreate),
	)...),
}

// ProfileFor returns the permission profile of a role, nil for unknown roles.
func ProfileFor(role models.Role) gate.Profile {
	return profiles[role]
}
