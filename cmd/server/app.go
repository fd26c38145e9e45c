package main

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/internal/handlers"
	"github.com/diewo77/procurement/internal/metrics"
	"github.com/diewo77/procurement/internal/middleware"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/notify"
	"github.com/diewo77/procurement/internal/policy"
	"github.com/diewo77/procurement/internal/services"
	"github.com/diewo77/procurement/internal/storage"
)

// routerConfig holds the handlers and guards the routes are built from.
type routerConfig struct {
	AuthGate *policy.AuthGate
	Sessions *auth.Manager
	Limiter  *middleware.RateLimiter

	Auth          *handlers.AuthHandler
	Quotes        *handlers.QuoteHandler
	Labor         *handlers.LaborHandler
	Requests      *handlers.RequestHandler
	Contractors   *handlers.ContractorHandler
	Catalog       *handlers.CatalogHandler
	Team          *handlers.TeamHandler
	Contact       *handlers.ContactHandler
	Notifications *handlers.NotificationHandler
	Documents     *handlers.DocumentHandler
	Dashboards    *handlers.DashboardHandler
}

type routerDeps struct {
	DB         *gorm.DB
	Notifier   *notify.Notifier
	Blobs      storage.Blob
	AuthGate   *policy.AuthGate
	Sessions   *auth.Manager
	Limiter    *middleware.RateLimiter
	Company    string
	AdminEmail string
}

// newRouterConfig builds every service and handler on top of d.
func newRouterConfig(d routerDeps) *routerConfig {
	ag := d.AuthGate
	users := services.NewUserService(d.DB)
	return &routerConfig{
		AuthGate: ag,
		Sessions: d.Sessions,
		Limiter:  d.Limiter,

		Auth: handlers.NewAuthHandler(ag, d.Sessions, users),
		Quotes: handlers.NewQuoteHandler(ag,
			services.NewQuoteService(d.DB, d.Notifier),
			services.NewCommentService(d.DB, d.Notifier),
			d.Company),
		Labor:    handlers.NewLaborHandler(ag, services.NewLaborService(d.DB, d.Notifier)),
		Requests: handlers.NewRequestHandler(ag, services.NewRequestService(d.DB, d.Blobs)),
		Contractors: handlers.NewContractorHandler(ag,
			services.NewContractorLinkService(d.DB, d.Notifier, ag.InvalidateUser),
			services.NewInvoiceService(d.DB, d.Notifier)),
		Catalog:       handlers.NewCatalogHandler(ag, services.NewCatalogService(d.DB)),
		Team:          handlers.NewTeamHandler(ag, users),
		Contact:       handlers.NewContactHandler(services.NewContactService(d.DB, d.Notifier, d.AdminEmail)),
		Notifications: handlers.NewNotificationHandler(ag, services.NewNotificationService(d.DB)),
		Documents:     handlers.NewDocumentHandler(ag, services.NewDocumentService(d.DB, d.Blobs)),
		Dashboards:    handlers.NewDashboardHandler(ag, services.NewDashboardService(d.DB)),
	}
}

// App is the root handler with every route registered.
type App struct {
	mux     *http.ServeMux
	db      *gorm.DB
	rc      *routerConfig
	handler http.Handler
}

func NewApp(db *gorm.DB, rc *routerConfig) *App {
	app := &App{mux: http.NewServeMux(), db: db, rc: rc}
	app.setupRoutes()
	app.handler = middleware.Recover(middleware.Logging(rc.Sessions.Middleware(middleware.Route(app.mux))))
	return app
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	m := a.mux
	rc := a.rc

	// Public
	m.HandleFunc("GET /health", handlers.Health(a.db))
	m.HandleFunc("GET /healthz", handlers.Health(a.db))
	m.Handle("GET /metrics", metrics.Handler())
	m.Handle("POST /api/auth/register", a.limited(rc.Auth.Register))
	m.Handle("POST /api/auth/login", a.limited(rc.Auth.Login))
	m.Handle("POST /api/contact", a.limited(rc.Contact.Submit))

	// Any signed-in user
	m.Handle("POST /api/auth/logout", a.signedIn(rc.Auth.Logout))
	m.Handle("GET /api/auth/me", a.signedIn(rc.Auth.Me))
	m.Handle("GET /api/tax-rates", a.signedIn(rc.Catalog.TaxRates))
	m.Handle("GET /api/admins", a.signedIn(rc.Team.Admins))
	m.Handle("GET /api/services", a.permitted(policy.ResourceService, gate.ActionList, rc.Catalog.ListServices))
	m.Handle("GET /api/notifications", a.permitted(policy.ResourceNotification, gate.ActionList, rc.Notifications.List))
	m.Handle("POST /api/notifications/{id}/read", a.permitted(policy.ResourceNotification, gate.ActionUpdate, rc.Notifications.MarkRead))
	m.Handle("POST /api/notifications/read-all", a.permitted(policy.ResourceNotification, gate.ActionUpdate, rc.Notifications.MarkAllRead))

	// Quotes
	q := rc.Quotes
	m.Handle("POST /api/admin/quotes", a.admin(q.Create))
	m.Handle("GET /api/admin/quotes", a.admin(q.List))
	m.Handle("POST /api/admin/quotes/preview", a.admin(q.Preview))
	m.Handle("GET /api/admin/quotes/{quoteId}", a.admin(q.Get))
	m.Handle("PUT /api/admin/quotes/{quoteId}", a.admin(q.Update))
	m.Handle("DELETE /api/admin/quotes/{quoteId}", a.admin(q.Delete))
	m.Handle("GET /api/client/quotes", a.client(q.ClientList))
	m.Handle("GET /api/client/quotes/{quoteId}", a.client(q.ClientGet))
	m.Handle("POST /api/client/quotes/{quoteId}/approve", a.client(q.Approve))
	m.Handle("POST /api/quotes/{quoteId}/comments", a.permitted(policy.ResourceComment, gate.ActionCreate, q.CreateComment))
	m.Handle("GET /api/quotes/{quoteId}/comments", a.permitted(policy.ResourceComment, gate.ActionList, q.ListComments))
	m.Handle("GET /api/quotes/{quoteId}/pdf", a.permitted(policy.ResourceQuote, gate.ActionView, q.PDF))

	// Projects and requests
	rq := rc.Requests
	m.Handle("POST /api/client/projects", a.client(rq.CreateProject))
	m.Handle("GET /api/client/projects", a.client(rq.ListProjects))
	m.Handle("POST /api/client/requests", a.client(rq.Create))
	m.Handle("GET /api/client/requests", a.client(rq.List))
	m.Handle("GET /api/client/requests/{id}", a.client(rq.Get))
	m.Handle("DELETE /api/client/requests/{id}", a.client(rq.Delete))
	m.Handle("GET /api/admin/requests", a.admin(rq.List))
	m.Handle("GET /api/admin/requests/{id}", a.admin(rq.Get))
	m.Handle("PUT /api/admin/requests/{id}/status", a.admin(rq.UpdateStatus))
	m.Handle("DELETE /api/admin/requests/{id}", a.admin(rq.Delete))

	// Documents
	d := rc.Documents
	m.Handle("POST /api/requests/{id}/documents", a.documents(gate.ActionCreate, d.Upload(models.DocumentOwnerRequest), models.RoleAdmin, models.RoleClient))
	m.Handle("GET /api/requests/{id}/documents", a.documents(gate.ActionList, d.List(models.DocumentOwnerRequest), models.RoleAdmin, models.RoleClient))
	m.Handle("POST /api/labor-requests/{id}/documents", a.documents(gate.ActionCreate, d.Upload(models.DocumentOwnerLaborRequest), models.RoleAdmin, models.RoleContractor))
	m.Handle("GET /api/labor-requests/{id}/documents", a.documents(gate.ActionList, d.List(models.DocumentOwnerLaborRequest), models.RoleAdmin, models.RoleContractor))
	m.Handle("GET /api/documents/{id}", a.permitted(policy.ResourceDocument, gate.ActionView, d.Download))

	// Labor requests
	l := rc.Labor
	m.Handle("POST /api/admin/labor-requests", a.admin(l.Create))
	m.Handle("GET /api/admin/labor-requests", a.admin(l.AdminList))
	m.Handle("GET /api/admin/labor-requests/{id}", a.admin(l.Get))
	m.Handle("POST /api/admin/labor-requests/{id}/approve", a.admin(l.Approve))
	m.Handle("POST /api/admin/labor-requests/{id}/reject", a.admin(l.Reject))
	m.Handle("PUT /api/admin/labor-requests/{id}/progress", a.admin(l.Progress))
	m.Handle("GET /api/contractor/labor-requests", a.contractor(l.ContractorList))
	m.Handle("GET /api/contractor/labor-requests/{id}", a.contractor(l.Get))
	m.Handle("POST /api/contractor/labor-requests/{requestId}/quote", a.contractor(l.Submit))

	// Contractor link and invoices
	c := rc.Contractors
	m.Handle("POST /api/client/request-contractor-link", a.client(c.RequestLink))
	m.Handle("GET /api/admin/contractor-requests", a.admin(c.PendingLinks))
	m.Handle("POST /api/admin/approve-contractor-request", a.admin(c.ApproveLink))
	m.Handle("POST /api/admin/reject-contractor-request", a.admin(c.RejectLink))
	m.Handle("POST /api/contractor/invoices", a.contractor(c.SubmitInvoice))
	m.Handle("GET /api/contractor/invoices", a.contractor(c.ContractorInvoices))
	m.Handle("GET /api/admin/invoices", a.admin(c.AdminInvoices))
	m.Handle("POST /api/admin/invoices/{id}/approve", a.admin(c.DecideInvoice(models.InvoiceApproved)))
	m.Handle("POST /api/admin/invoices/{id}/reject", a.admin(c.DecideInvoice(models.InvoiceRejected)))
	m.Handle("POST /api/admin/invoices/{id}/pay", a.admin(c.DecideInvoice(models.InvoicePaid)))

	// Catalog, templates, team, contact
	cat := rc.Catalog
	m.Handle("POST /api/admin/services", a.admin(cat.CreateService))
	m.Handle("PUT /api/admin/services/{id}", a.admin(cat.UpdateService))
	m.Handle("DELETE /api/admin/services/{id}", a.admin(cat.DeleteService))
	m.Handle("POST /api/admin/pricing-templates", a.admin(cat.CreateTemplate))
	m.Handle("GET /api/admin/pricing-templates", a.admin(cat.ListTemplates))
	m.Handle("DELETE /api/admin/pricing-templates/{id}", a.admin(cat.DeleteTemplate))
	m.Handle("GET /api/admin/team", a.admin(rc.Team.List))
	m.Handle("POST /api/admin/team", a.admin(rc.Team.Create))
	m.Handle("GET /api/admin/contact-submissions", a.admin(rc.Contact.List))

	// Dashboards
	db := rc.Dashboards
	m.Handle("GET /dashboard", a.signedIn(db.Redirect))
	m.Handle("GET /dashboard/admin", a.admin(db.Show))
	m.Handle("GET /dashboard/client", a.client(db.Show))
	m.Handle("GET /dashboard/contractor", a.contractor(db.Show))
}

func (a *App) limited(h http.HandlerFunc) http.Handler {
	return a.rc.Limiter.Limit(h)
}

func (a *App) signedIn(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(h)
}

// role admits signed-in users whose stored role is one of roles.
func (a *App) role(h http.Handler, roles ...models.Role) http.Handler {
	return auth.RequireAuth(a.rc.AuthGate.RequireRole(roles...)(h))
}

func (a *App) admin(h http.HandlerFunc) http.Handler      { return a.role(h, models.RoleAdmin) }
func (a *App) client(h http.HandlerFunc) http.Handler     { return a.role(h, models.RoleClient) }
func (a *App) contractor(h http.HandlerFunc) http.Handler { return a.role(h, models.RoleContractor) }

// permitted checks resource:action against the caller's role profile.
// Row-level ownership is left to the service.
func (a *App) permitted(resource string, action gate.Action, h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(a.rc.AuthGate.RequirePermission(resource, action)(h))
}

func (a *App) documents(action gate.Action, h http.HandlerFunc, roles ...models.Role) http.Handler {
	return a.role(a.rc.AuthGate.RequirePermission(policy.ResourceDocument, action)(h), roles...)
}
