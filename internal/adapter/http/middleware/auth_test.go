package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/auth"
	"github.com/iho/gobooks/internal/infrastructure/metrics"
)

func actorEcho(t *testing.T, got *domain.Actor) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatalf("expected actor in context")
		}
		*got = actor
	})
}

func TestAuthenticate(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Minute)
	m := metrics.New(prometheus.NewRegistry())

	want := domain.Actor{OrganizationID: "org-1", UserID: "u1", Role: domain.RoleAccountant}
	token, err := manager.Generate(want)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var got domain.Actor
	h := Authenticate(manager, m)(actorEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || got != want {
		t.Fatalf("expected actor %+v, got %+v (status %d)", want, got, rr.Code)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Minute)
	m := metrics.New(prometheus.NewRegistry())

	tests := []struct {
		name   string
		header string
		reason string
	}{
		{"missing header", "", "missing"},
		{"wrong scheme", "Basic abc", "malformed"},
		{"garbage token", "Bearer nope", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Authenticate(manager, m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("handler should not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if testutil.ToFloat64(m.AuthFailures.WithLabelValues(tt.reason)) < 1 {
				t.Fatalf("expected %s failure to be counted", tt.reason)
			}
		})
	}
}

func TestStaticActor(t *testing.T) {
	var got domain.Actor
	h := StaticActor("default")(actorEcho(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeader, "alice")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.OrganizationID != "default" || got.UserID != "alice" || got.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		role domain.Role
		want int
	}{
		{"admin may manage", domain.RoleAdmin, http.StatusOK},
		{"accountant may not", domain.RoleAccountant, http.StatusForbidden},
		{"viewer may not", domain.RoleViewer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireRole(domain.Role.CanManageBooks)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(WithActor(req.Context(), domain.Actor{OrganizationID: "o", Role: tt.role}))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}

	rr := httptest.NewRecorder()
	RequireRole(domain.Role.CanManageBooks)(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", rr.Code)
	}
}
