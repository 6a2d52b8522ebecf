package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/recipe"
)

func seedRecipe(t *testing.T, repo *RecipesRepo, id, owner, title string, created time.Time) recipe.Recipe {
	t.Helper()

	r, err := repo.Create(context.Background(), recipe.Recipe{
		ID:          id,
		Title:       title,
		Description: "desc of " + title,
		Ingredients: []string{"salt"},
		LikedBy:     []string{},
		Comments:    []recipe.Comment{},
		UserID:      owner,
		CreatedAt:   created,
		UpdatedAt:   created,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return r
}

func TestRecipesRepo_ListCursorPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipesRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	seedRecipe(t, repo, "a", "u1", "Soup", base)
	seedRecipe(t, repo, "b", "u1", "Salad", base.Add(time.Hour))
	seedRecipe(t, repo, "c", "u2", "Stew", base.Add(2*time.Hour))

	page, hasMore, err := repo.ListCursor(ctx, recipe.ListFilter{Limit: 2}, recipe.Cursor{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !hasMore || len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Fatalf("unexpected first page: hasMore=%v %+v", hasMore, page)
	}

	last := page[len(page)-1]
	page, hasMore, err = repo.ListCursor(ctx, recipe.ListFilter{Limit: 2}, recipe.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if hasMore || len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("unexpected second page: hasMore=%v %+v", hasMore, page)
	}
}

func TestRecipesRepo_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipesRepo()
	base := time.Now()

	seedRecipe(t, repo, "a", "u1", "Tomato Soup", base)
	seedRecipe(t, repo, "b", "u2", "Green Salad", base.Add(time.Second))

	q := "soup"
	page, _, err := repo.ListCursor(ctx, recipe.ListFilter{Query: &q, Limit: 10}, recipe.Cursor{})
	if err != nil || len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("query filter: err=%v page=%+v", err, page)
	}

	owner := "u2"
	page, _, err = repo.ListCursor(ctx, recipe.ListFilter{UserID: &owner, Limit: 10}, recipe.Cursor{})
	if err != nil || len(page) != 1 || page[0].ID != "b" {
		t.Fatalf("owner filter: err=%v page=%+v", err, page)
	}
}

func TestRecipesRepo_LikeIsIdempotentPerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipesRepo()
	seedRecipe(t, repo, "a", "u1", "Soup", time.Now())

	for i := 0; i < 3; i++ {
		likes, err := repo.Like(ctx, "a", "u2")
		if err != nil {
			t.Fatalf("like: %v", err)
		}
		if likes != 1 {
			t.Fatalf("likes = %d after repeat like, want 1", likes)
		}
	}

	likes, _ := repo.Like(ctx, "a", "u3")
	if likes != 2 {
		t.Fatalf("likes = %d, want 2", likes)
	}

	likes, err := repo.Unlike(ctx, "a", "u2")
	if err != nil || likes != 1 {
		t.Fatalf("unlike: likes=%d err=%v", likes, err)
	}

	got, _ := repo.GetByID(ctx, "a")
	if got.Likes != len(got.LikedBy) {
		t.Fatalf("likes %d out of sync with likedBy %v", got.Likes, got.LikedBy)
	}

	if _, err := repo.Like(ctx, "missing", "u2"); !errors.Is(err, recipe.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecipesRepo_UpdateCommentDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipesRepo()
	seedRecipe(t, repo, "a", "u1", "Soup", time.Now())
	seedRecipe(t, repo, "b", "u1", "Bread", time.Now())
	seedRecipe(t, repo, "c", "u2", "Pie", time.Now())

	updated, err := repo.Update(ctx, "a", recipe.UpdateRecipeRequest{
		Title:       "Better Soup",
		Description: "hot",
		Ingredients: []string{"water", "salt"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Better Soup" || len(updated.Ingredients) != 2 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	withComment, err := repo.AddComment(ctx, "a", recipe.NewComment("u2", "bob", " tasty "))
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if len(withComment.Comments) != 1 || withComment.Comments[0].Text != "tasty" {
		t.Fatalf("unexpected comments: %+v", withComment.Comments)
	}

	// returned copies must not alias stored state
	withComment.Comments[0].Text = "mutated"
	stored, _ := repo.GetByID(ctx, "a")
	if stored.Comments[0].Text != "tasty" {
		t.Fatalf("store was mutated through returned value")
	}

	n, err := repo.DeleteByOwner(ctx, "u1")
	if err != nil || n != 2 {
		t.Fatalf("delete by owner: n=%d err=%v", n, err)
	}
	if err := repo.Delete(ctx, "a"); !errors.Is(err, recipe.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "c"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
