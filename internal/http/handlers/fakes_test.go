package handlers_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/recipedia/internal/auth"
	"github.com/geocoder89/recipedia/internal/domain/recipe"
	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

// Fake repository implementations of the handlers store interfaces

type fakeUsersStore struct {
	createFn     func(ctx context.Context, u user.User) (user.User, error)
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	getByIDFn    func(ctx context.Context, id string) (user.User, error)
	updateFn     func(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error)
	deleteFn     func(ctx context.Context, id string) error
	listFn       func(ctx context.Context) ([]user.User, error)
}

func (f *fakeUsersStore) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return u, nil
}

func (f *fakeUsersStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersStore) Update(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return user.User{}, nil
}

func (f *fakeUsersStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeUsersStore) List(ctx context.Context) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return []user.User{}, nil
}

type fakeRecipesStore struct {
	createFn        func(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error)
	getFn           func(ctx context.Context, id string) (recipe.Recipe, error)
	listCursorFn    func(ctx context.Context, filter recipe.ListFilter, after recipe.Cursor) ([]recipe.Recipe, bool, error)
	updateFn        func(ctx context.Context, id string, req recipe.UpdateRecipeRequest) (recipe.Recipe, error)
	deleteFn        func(ctx context.Context, id string) error
	deleteByOwnerFn func(ctx context.Context, userID string) (int64, error)
	likeFn          func(ctx context.Context, id, userID string) (int, error)
	unlikeFn        func(ctx context.Context, id, userID string) (int, error)
	addCommentFn    func(ctx context.Context, id string, c recipe.Comment) (recipe.Recipe, error)
}

func (f *fakeRecipesStore) Create(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error) {
	if f.createFn != nil {
		return f.createFn(ctx, r)
	}
	return r, nil
}

func (f *fakeRecipesStore) GetByID(ctx context.Context, id string) (recipe.Recipe, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return recipe.Recipe{}, recipe.ErrNotFound
}

func (f *fakeRecipesStore) ListCursor(ctx context.Context, filter recipe.ListFilter, after recipe.Cursor) ([]recipe.Recipe, bool, error) {
	if f.listCursorFn != nil {
		return f.listCursorFn(ctx, filter, after)
	}
	return []recipe.Recipe{}, false, nil
}

func (f *fakeRecipesStore) Update(ctx context.Context, id string, req recipe.UpdateRecipeRequest) (recipe.Recipe, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return recipe.Recipe{}, nil
}

func (f *fakeRecipesStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeRecipesStore) DeleteByOwner(ctx context.Context, userID string) (int64, error) {
	if f.deleteByOwnerFn != nil {
		return f.deleteByOwnerFn(ctx, userID)
	}
	return 0, nil
}

func (f *fakeRecipesStore) Like(ctx context.Context, id, userID string) (int, error) {
	if f.likeFn != nil {
		return f.likeFn(ctx, id, userID)
	}
	return 0, nil
}

func (f *fakeRecipesStore) Unlike(ctx context.Context, id, userID string) (int, error) {
	if f.unlikeFn != nil {
		return f.unlikeFn(ctx, id, userID)
	}
	return 0, nil
}

func (f *fakeRecipesStore) AddComment(ctx context.Context, id string, c recipe.Comment) (recipe.Recipe, error) {
	if f.addCommentFn != nil {
		return f.addCommentFn(ctx, id, c)
	}
	return recipe.Recipe{}, nil
}

// fakeTokens issues deterministic tokens.
type fakeTokens struct {
	err error
}

func (f fakeTokens) GenerateAccessToken(userID, email, role string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}

var testJWT = auth.NewManager("handlers-test-secret", time.Hour)

// authed returns the auth middleware and a valid bearer token for the identity.
func authed(t *testing.T, userID, role string) (gin.HandlerFunc, string) {
	t.Helper()

	token, err := testJWT.GenerateAccessToken(userID, userID+"@example.com", role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	return middlewares.NewAuthMiddleware(testJWT, nil).RequireAuth(), token
}

// small helper function which returns the gin engine to mount one handler per test
func setupRouter(method, path string, h ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h...)

	return r
}

func serve(r http.Handler, method, url, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
