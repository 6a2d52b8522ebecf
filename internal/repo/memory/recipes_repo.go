package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/recipe"
)

type RecipesRepo struct {
	mu    sync.RWMutex
	items map[string]recipe.Recipe
}

func NewRecipesRepo() *RecipesRepo {
	return &RecipesRepo{
		items: make(map[string]recipe.Recipe),
	}
}

// clone copies the slices so callers never share backing arrays with the store.
func clone(r recipe.Recipe) recipe.Recipe {
	r.Ingredients = append([]string{}, r.Ingredients...)
	r.LikedBy = append([]string{}, r.LikedBy...)
	r.Comments = append([]recipe.Comment{}, r.Comments...)
	return r
}

func (r *RecipesRepo) Create(_ context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	rec = clone(rec)
	rec.Likes = len(rec.LikedBy)

	r.mu.Lock()
	r.items[rec.ID] = rec
	r.mu.Unlock()

	return clone(rec), nil
}

func (r *RecipesRepo) GetByID(_ context.Context, id string) (recipe.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.items[id]
	if !ok {
		return recipe.Recipe{}, recipe.ErrNotFound
	}
	return clone(rec), nil
}

func (r *RecipesRepo) ListCursor(_ context.Context, filter recipe.ListFilter, after recipe.Cursor) ([]recipe.Recipe, bool, error) {
	r.mu.RLock()
	matched := make([]recipe.Recipe, 0)
	for _, rec := range r.items {
		if filter.Matches(rec) && after.After(rec) {
			matched = append(matched, clone(rec))
		}
	}
	r.mu.RUnlock()

	// newest first, id as tie breaker
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = recipe.DefaultListLimit
	}

	if len(matched) > limit {
		return matched[:limit], true, nil
	}
	return matched, false, nil
}

func (r *RecipesRepo) Update(_ context.Context, id string, req recipe.UpdateRecipeRequest) (recipe.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	rec.Title = req.Title
	rec.Description = req.Description
	rec.Ingredients = append([]string{}, req.Ingredients...)
	rec.Image = req.Image
	rec.UpdatedAt = time.Now().UTC()
	r.items[id] = rec

	return clone(rec), nil
}

func (r *RecipesRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return recipe.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *RecipesRepo) DeleteByOwner(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rec := range r.items {
		if rec.UserID == userID {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *RecipesRepo) Like(_ context.Context, id, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return 0, recipe.ErrNotFound
	}

	if !rec.LikedByUser(userID) {
		rec.LikedBy = append(append([]string{}, rec.LikedBy...), userID)
		rec.Likes = len(rec.LikedBy)
		r.items[id] = rec
	}
	return rec.Likes, nil
}

func (r *RecipesRepo) Unlike(_ context.Context, id, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return 0, recipe.ErrNotFound
	}

	kept := make([]string, 0, len(rec.LikedBy))
	for _, uid := range rec.LikedBy {
		if uid != userID {
			kept = append(kept, uid)
		}
	}
	rec.LikedBy = kept
	rec.Likes = len(kept)
	r.items[id] = rec

	return rec.Likes, nil
}

func (r *RecipesRepo) AddComment(_ context.Context, id string, c recipe.Comment) (recipe.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.items[id]
	if !ok {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	rec.Comments = append(append([]recipe.Comment{}, rec.Comments...), c)
	r.items[id] = rec

	return clone(rec), nil
}

func (r *RecipesRepo) Ping(context.Context) error {
	return nil
}
