package middlewares_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/recipedia/internal/actorctx"
	"github.com/geocoder89/recipedia/internal/auth"
	"github.com/geocoder89/recipedia/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f fakeVerifier) VerifyAccessToken(string) (*auth.Claims, error) {
	return f.claims, f.err
}

type countingObserver struct {
	reasons []string
}

func (o *countingObserver) ObserveAuthFailure(reason string) {
	o.reasons = append(o.reasons, reason)
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func TestRequireAuth(t *testing.T) {
	okClaims := &auth.Claims{UserID: "u1", Email: "sam@example.com", Role: "user"}

	tests := []struct {
		name        string
		header      string
		verifier    fakeVerifier
		wantStatus  int
		wantMessage string
		wantReason  string
	}{
		{
			name:        "missing_header",
			header:      "",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access denied. No token provided.",
			wantReason:  "missing",
		},
		{
			name:        "wrong_scheme",
			header:      "Basic abc",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access denied. No token provided.",
			wantReason:  "missing",
		},
		{
			name:        "bearer_without_token",
			header:      "Bearer   ",
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access denied. No token provided.",
			wantReason:  "missing",
		},
		{
			name:        "expired",
			header:      "Bearer tok",
			verifier:    fakeVerifier{err: auth.ErrTokenExpired},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Access denied. Token has expired.",
			wantReason:  "expired",
		},
		{
			name:        "invalid",
			header:      "Bearer tok",
			verifier:    fakeVerifier{err: auth.ErrInvalidToken},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid token.",
			wantReason:  "invalid",
		},
		{
			name:       "ok",
			header:     "Bearer tok",
			verifier:   fakeVerifier{claims: okClaims},
			wantStatus: http.StatusOK,
		},
		{
			name:       "ok_lowercase_scheme",
			header:     "bearer tok",
			verifier:   fakeVerifier{claims: okClaims},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			obs := &countingObserver{}
			m := middlewares.NewAuthMiddleware(tt.verifier, obs)

			var gotUserID, gotCtxUserID string
			r := gin.New()
			r.GET("/p", m.RequireAuth(), func(c *gin.Context) {
				gotUserID, _ = middlewares.UserIDFromContext(c)
				gotCtxUserID, _ = actorctx.UserIDFrom(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusOK {
				if gotUserID != "u1" || gotCtxUserID != "u1" {
					t.Fatalf("identity not attached: gin=%q ctx=%q", gotUserID, gotCtxUserID)
				}
				return
			}

			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad json: %v", err)
			}
			if body.Success || body.Message != tt.wantMessage {
				t.Fatalf("got %+v, want message %q", body, tt.wantMessage)
			}
			if len(obs.reasons) != 1 || obs.reasons[0] != tt.wantReason {
				t.Fatalf("observer reasons = %v, want [%s]", obs.reasons, tt.wantReason)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"admin_allowed", "admin", http.StatusOK},
		{"user_forbidden", "user", http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m := middlewares.NewAuthMiddleware(fakeVerifier{claims: &auth.Claims{UserID: "u1", Role: tt.role}}, nil)

			r := gin.New()
			r.GET("/admin", m.RequireAuth(), m.RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer tok")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	t.Run("any_of_several_roles", func(t *testing.T) {
		obs := &countingObserver{}
		m := middlewares.NewAuthMiddleware(fakeVerifier{claims: &auth.Claims{UserID: "u1", Role: "user"}}, obs)

		r := gin.New()
		r.GET("/both", m.RequireAuth(), m.RequireRole("admin", "user"), func(c *gin.Context) { c.Status(http.StatusOK) })
		r.GET("/admin", m.RequireAuth(), m.RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

		for path, want := range map[string]int{"/both": http.StatusOK, "/admin": http.StatusForbidden} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer tok")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != want {
				t.Fatalf("%s got %d, want %d", path, w.Code, want)
			}
		}

		if len(obs.reasons) != 1 || obs.reasons[0] != "forbidden_role" {
			t.Fatalf("observer reasons = %v, want [forbidden_role]", obs.reasons)
		}
	})

	t.Run("missing_identity", func(t *testing.T) {
		m := middlewares.NewAuthMiddleware(fakeVerifier{}, nil)
		r := gin.New()
		r.GET("/admin", m.RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got %d, want 401", w.Code)
		}
	})
}

func TestRequireAuthWithRealManager(t *testing.T) {
	mgr := auth.NewManager("secret", time.Hour)
	tok, err := mgr.GenerateAccessToken("u7", "x@y.z", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	r := gin.New()
	r.GET("/p", middlewares.NewAuthMiddleware(mgr, nil).RequireAuth(), func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		c.String(http.StatusOK, id)
	})

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "u7" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}
