package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/recipedia/internal/cache"
	"github.com/geocoder89/recipedia/internal/config"
	apphttp "github.com/geocoder89/recipedia/internal/http"
	"github.com/geocoder89/recipedia/internal/http/middlewares"
	"github.com/geocoder89/recipedia/internal/observability"
	"github.com/geocoder89/recipedia/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func testConfig() config.Config {
	return config.Config{
		Env:               "test",
		StoreDriver:       "memory",
		JWTSecret:         "test-secret-key",
		JWTAccessTTLHours: 24,
		CORSOrigins:       []string{"http://localhost:5173"},
		RateLimitAuth:     100,
		RateLimitWindow:   time.Minute,
		CacheTTL:          time.Minute,
		MaxBodyBytes:      1 << 20,
	}
}

type testApp struct {
	router  *gin.Engine
	users   *memory.UsersRepo
	recipes *memory.RecipesRepo
	cache   *cache.Cache
}

func setupApp(t *testing.T, limiter middlewares.Limiter) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := testConfig()

	app := &testApp{
		users:   memory.NewUsersRepo(),
		recipes: memory.NewRecipesRepo(),
		cache:   cache.New(cfg.CacheTTL),
	}

	app.router = apphttp.NewRouter(logger, apphttp.Deps{
		Users:       app.users,
		Recipes:     app.recipes,
		Ready:       app.users,
		Cache:       app.cache,
		AuthLimiter: limiter,
		Prom:        observability.NewProm(),
	}, cfg)

	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Address  string `json:"address"`
	} `json:"user"`
}

type recipeData struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Likes    int      `json:"likes"`
	LikedBy  []string `json:"likedBy"`
	UserID   string   `json:"userId"`
	Comments []struct {
		User     string `json:"user"`
		Username string `json:"username"`
		Text     string `json:"text"`
	} `json:"comments"`
}

type pageData struct {
	Recipes    []recipeData `json:"recipes"`
	Count      int          `json:"count"`
	NextCursor *string      `json:"nextCursor"`
	HasMore    bool         `json:"hasMore"`
}

// doRequest runs a request against the router, attaching a bearer token when given.
func doRequest(router http.Handler, method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

// mustData decodes the envelope and its data payload.
func mustData[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) envelope {
	t.Helper()

	var env envelope
	mustReadJSON(t, w, &env)

	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("failed to unmarshal data: %v, body=%s", err, w.Body.String())
	}
	return env
}

func registerBody(username, email, password string) string {
	return `{
		"username": "` + username + `",
		"email": "` + email + `",
		"password": "` + password + `",
		"age": 30,
		"gender": "female",
		"address": "12 Baker Street",
		"phone": "+44 20 7946 0000"
	}`
}

// register creates an account and returns its token and id.
func register(t *testing.T, router http.Handler, username, email string) authData {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/auth/register", registerBody(username, email, "password123"), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var data authData
	mustData(t, w, &data)
	return data
}

func createRecipe(t *testing.T, router http.Handler, token, title string) recipeData {
	t.Helper()

	body := `{"title":"` + title + `","description":"A cosy dish","ingredients":[" water ","salt"],"image":"https://img.example.com/1.png"}`
	w := doRequest(router, http.MethodPost, "/recipes", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create recipe got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var r recipeData
	mustData(t, w, &r)
	return r
}
