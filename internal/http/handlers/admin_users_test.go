package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/auth"
	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/http/handlers"
	"github.com/booali9/obe-comiler-backend/internal/http/middlewares"
	"github.com/booali9/obe-comiler-backend/internal/service"
	"github.com/gin-gonic/gin"
)

type fakeAdminUsersAPI struct {
	listFn      func(ctx context.Context, limit, offset int) ([]user.User, error)
	getUserFn   func(ctx context.Context, id string) (user.User, error)
	updateFn    func(ctx context.Context, id string, name, role *string) (user.User, error)
	setActiveFn func(ctx context.Context, id string, active bool) error
}

func (f *fakeAdminUsersAPI) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (f *fakeAdminUsersAPI) Get(ctx context.Context, id string) (user.User, error) {
	if f.getUserFn != nil {
		return f.getUserFn(ctx, id)
	}
	return user.User{}, nil
}

func (f *fakeAdminUsersAPI) Update(ctx context.Context, id string, name, role *string) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, name, role)
	}
	return user.User{}, nil
}

func (f *fakeAdminUsersAPI) SetActive(ctx context.Context, id string, active bool) error {
	if f.setActiveFn != nil {
		return f.setActiveFn(ctx, id, active)
	}
	return nil
}

func newAdminRouter(svc *fakeAdminUsersAPI, authAPI *fakeAuthAPI) (*gin.Engine, string) {
	jwt := auth.NewManager("test-secret", time.Hour, 10*time.Minute)
	h := handlers.NewAdminUsersHandler(svc, authAPI)

	users := &fakeUserGetter{
		getFn: func(ctx context.Context, id string) (user.User, error) {
			return user.User{ID: id, Role: user.RoleAdmin, IsActive: true}, nil
		},
	}

	am := middlewares.NewAuthMiddleware(jwt, users)

	r := gin.New()

	admin := r.Group("/admin", am.RequireAuth(), am.RequireRole(user.RoleAdmin))
	admin.POST("/users", h.Create)
	admin.GET("/users", h.List)
	admin.GET("/users/:id", h.Get)
	admin.PATCH("/users/:id", h.Update)
	admin.DELETE("/users/:id", h.Deactivate)
	admin.POST("/users/:id/reactivate", h.Reactivate)

	token, err := jwt.GenerateSessionToken("admin-1", "boss@cloud.neduet.edu.pk", user.RoleAdmin)
	if err != nil {
		panic(err)
	}

	return r, token
}

func TestAdminCreateUser_CarriesActorRole(t *testing.T) {
	var got service.SignupInput

	authAPI := &fakeAuthAPI{
		signupFn: func(ctx context.Context, in service.SignupInput) (user.User, error) {
			got = in
			return user.User{ID: "u2", Email: in.Email, Role: in.Role}, nil
		},
	}

	r, token := newAdminRouter(&fakeAdminUsersAPI{}, authAPI)

	b, _ := json.Marshal(gin.H{
		"name":     "Bob",
		"email":    "bob@cloud.neduet.edu.pk",
		"password": "Secret123",
		"role":     "admin",
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}

	if got.ActorRole != user.RoleAdmin {
		t.Fatalf("actor role %q", got.ActorRole)
	}

	if got.Role != user.RoleAdmin {
		t.Fatalf("requested role %q", got.Role)
	}
}

func TestAdminCreateUser_RejectsUnknownRole(t *testing.T) {
	r, token := newAdminRouter(&fakeAdminUsersAPI{}, &fakeAuthAPI{})

	b, _ := json.Marshal(gin.H{
		"name":     "Bob",
		"email":    "bob@cloud.neduet.edu.pk",
		"password": "Secret123",
		"role":     "superuser",
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
}

func TestAdminUpdateUser_ConflictAndNotFound(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not_found", service.ErrNotFound, http.StatusNotFound},
		{"duplicate_email", service.ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAdminUsersAPI{
				updateFn: func(ctx context.Context, id string, name, role *string) (user.User, error) {
					return user.User{}, tt.err
				},
			}

			r, token := newAdminRouter(svc, &fakeAuthAPI{})

			b, _ := json.Marshal(gin.H{"name": "Renamed"})

			req := httptest.NewRequest(http.MethodPatch, "/admin/users/u2", bytes.NewReader(b))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAdminDeactivateReactivate(t *testing.T) {
	type call struct {
		id     string
		active bool
	}

	var calls []call

	svc := &fakeAdminUsersAPI{
		setActiveFn: func(ctx context.Context, id string, active bool) error {
			calls = append(calls, call{id, active})
			return nil
		},
	}

	r, token := newAdminRouter(svc, &fakeAuthAPI{})

	req := httptest.NewRequest(http.MethodDelete, "/admin/users/u2", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("deactivate status %d, body %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/users/u2/reactivate", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("reactivate status %d, body %s", w.Code, w.Body.String())
	}

	want := []call{{"u2", false}, {"u2", true}}
	for i, c := range calls {
		if c != want[i] {
			t.Fatalf("call %d = %+v, want %+v", i, c, want[i])
		}
	}

	if len(calls) != 2 {
		t.Fatalf("calls %d", len(calls))
	}
}
