package handlers

import (
	"context"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/recipe"
	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

type RecipesStore interface {
	Create(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error)
	GetByID(ctx context.Context, id string) (recipe.Recipe, error)
	ListCursor(ctx context.Context, filter recipe.ListFilter, after recipe.Cursor) ([]recipe.Recipe, bool, error)
	Update(ctx context.Context, id string, req recipe.UpdateRecipeRequest) (recipe.Recipe, error)
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, userID string) (int64, error)
	Like(ctx context.Context, id, userID string) (int, error)
	Unlike(ctx context.Context, id, userID string) (int, error)
	AddComment(ctx context.Context, id string, c recipe.Comment) (recipe.Recipe, error)
}

// ListCache holds serialized list pages. Implementations treat failures as misses.
// Every ClearPrefix bumps the generation, and SetIfGeneration refuses fills read before it.
type ListCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Generation(ctx context.Context) uint64
	SetIfGeneration(ctx context.Context, key string, val []byte, gen uint64) bool
	ClearPrefix(ctx context.Context, prefix string)
}

type CacheObserver interface {
	ObserveCache(hit bool)
}

// requestContext bounds a store call while keeping the request's trace and actor values.
func requestContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
