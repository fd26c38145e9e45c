package policy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/gate"
	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/internal/policy"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatal(err)
	}
	return u
}

func ctxFor(u models.User, tokenRole string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{ID: u.ID, Email: u.Email, Role: tokenRole})
}

func TestAuthGate_RoleComesFromDatabase(t *testing.T) {
	db := setupDB(t)
	ag := policy.NewAuthGate(db, time.Minute)
	client := createUser(t, db, "c@example.com", models.RoleClient)

	// the token claims admin, the database says client
	ctx := ctxFor(client, "admin")
	if ag.CanProfile(ctx, gate.ActionUpdate, policy.ResourceQuote) {
		t.Fatal("stale admin claim must not grant quote:update")
	}
	if !ag.CanProfile(ctx, gate.ActionApprove, policy.ResourceQuote) {
		t.Fatal("client should approve quotes")
	}
}

func TestAuthGate_InvalidateAfterRoleChange(t *testing.T) {
	db := setupDB(t)
	ag := policy.NewAuthGate(db, time.Hour)
	u := createUser(t, db, "x@example.com", models.RoleClient)
	ctx := ctxFor(u, "client")

	if ag.CanProfile(ctx, gate.ActionSubmit, policy.ResourceLabor) {
		t.Fatal("client cannot submit estimates")
	}
	db.Model(&models.User{}).Where("id = ?", u.ID).Update("role", models.RoleContractor)

	// still cached
	if ag.CanProfile(ctx, gate.ActionSubmit, policy.ResourceLabor) {
		t.Fatal("cached role should still apply before invalidation")
	}
	ag.InvalidateUser(u.ID)
	if !ag.CanProfile(ctx, gate.ActionSubmit, policy.ResourceLabor) {
		t.Fatal("new role should apply after invalidation")
	}
}

func TestAuthGate_Policies(t *testing.T) {
	db := setupDB(t)
	ag := policy.NewAuthGate(db, time.Minute)
	admin := createUser(t, db, "a@example.com", models.RoleAdmin)
	client := createUser(t, db, "c@example.com", models.RoleClient)
	other := createUser(t, db, "o@example.com", models.RoleClient)

	cid := client.ID
	q := &models.Quote{AdminID: admin.ID, ClientID: &cid, Status: models.QuoteSent}

	if err := ag.Authorize(ctxFor(admin, "admin"), gate.ActionView, policy.ResourceQuote, q); err != nil {
		t.Errorf("admin view: %v", err)
	}
	if err := ag.Authorize(ctxFor(client, "client"), gate.ActionApprove, policy.ResourceQuote, q); err != nil {
		t.Errorf("owner approve: %v", err)
	}
	if err := ag.Authorize(ctxFor(other, "client"), gate.ActionView, policy.ResourceQuote, q); err != gate.ErrForbidden {
		t.Errorf("other client: got %v, want ErrForbidden", err)
	}
	if err := ag.Authorize(context.Background(), gate.ActionView, policy.ResourceQuote, q); err != gate.ErrUnauthorized {
		t.Errorf("anonymous: got %v, want ErrUnauthorized", err)
	}
}

func TestAuthGate_RequireRole(t *testing.T) {
	db := setupDB(t)
	ag := policy.NewAuthGate(db, time.Minute)
	contractor := createUser(t, db, "k@example.com", models.RoleContractor)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := ag.RequireRole(models.RoleAdmin)(ok)

	t.Run("api forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/quotes", nil)
		req = req.WithContext(ctxFor(contractor, "admin"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("browser redirected to own dashboard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil)
		req.Header.Set("Accept", "text/html")
		req = req.WithContext(ctxFor(contractor, "contractor"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard/contractor" {
			t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("anonymous browser to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil)
		req.Header.Set("Accept", "text/html")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("deleted user is unauthorized", func(t *testing.T) {
		gone := createUser(t, db, "gone@example.com", models.RoleAdmin)
		db.Delete(&gone)
		req := httptest.NewRequest(http.MethodGet, "/api/admin/quotes", nil)
		req = req.WithContext(ctxFor(gone, "admin"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestAuthGate_RequirePermission(t *testing.T) {
	db := setupDB(t)
	ag := policy.NewAuthGate(db, time.Minute)
	client := createUser(t, db, "c@example.com", models.RoleClient)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/api/client/requests", nil).WithContext(ctxFor(client, "client"))
	rec := httptest.NewRecorder()
	ag.RequirePermission(policy.ResourceRequest, gate.ActionCreate)(ok).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	ag.RequirePermission(policy.ResourceService, gate.ActionCreate)(ok).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
