package mongodb_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/recipe"
	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/repo/mongodb"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

func newTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongodb.Connect(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	db := client.Database("recipedia_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	return db
}

func TestUsersRepo_Mongo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := mongodb.NewUsersRepo(db, nil)

	u, err := users.Create(ctx, user.NewFromRegisterRequest(user.RegisterRequest{
		Username: "ada", Email: "Ada@Example.com", Age: 36, Gender: "female", Address: "x", Phone: "1",
	}, "hash"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := users.Create(ctx, user.NewFromRegisterRequest(user.RegisterRequest{Email: "ada@example.com"}, "h")); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	phone := "2"
	updated, err := users.Update(ctx, u.ID, user.UpdateProfileRequest{Phone: &phone})
	if err != nil || updated.Phone != "2" || updated.Username != "ada" {
		t.Fatalf("update: err=%v user=%+v", err, updated)
	}

	if _, err := users.GetByID(ctx, "zzz"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}

	if err := users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := users.Delete(ctx, u.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecipesRepo_Mongo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	recipes := mongodb.NewRecipesRepo(db, nil)

	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i := 0; i < 3; i++ {
		r := recipe.NewFromCreateRequest(recipe.CreateRecipeRequest{
			Title: "Soup", Description: "warm", Ingredients: []string{"water"},
		}, "owner")
		r.CreatedAt = base.Add(time.Duration(i) * time.Second)
		created, err := recipes.Create(ctx, r)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, created.ID)
	}

	page, hasMore, err := recipes.ListCursor(ctx, recipe.ListFilter{Limit: 2}, recipe.Cursor{})
	if err != nil || !hasMore || len(page) != 2 || page[0].ID != ids[2] {
		t.Fatalf("first page: err=%v hasMore=%v page=%v", err, hasMore, page)
	}
	last := page[1]
	page, hasMore, err = recipes.ListCursor(ctx, recipe.ListFilter{Limit: 2}, recipe.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	if err != nil || hasMore || len(page) != 1 || page[0].ID != ids[0] {
		t.Fatalf("second page: err=%v hasMore=%v page=%v", err, hasMore, page)
	}

	for i := 0; i < 2; i++ {
		likes, err := recipes.Like(ctx, ids[0], "fan")
		if err != nil || likes != 1 {
			t.Fatalf("like #%d: likes=%d err=%v", i, likes, err)
		}
	}
	likes, err := recipes.Unlike(ctx, ids[0], "fan")
	if err != nil || likes != 0 {
		t.Fatalf("unlike: likes=%d err=%v", likes, err)
	}

	if _, err := recipes.AddComment(ctx, "not-an-id", recipe.NewComment("fan", "fan", "hi")); !errors.Is(err, recipe.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := recipes.DeleteByOwner(ctx, "owner")
	if err != nil || n != 3 {
		t.Fatalf("delete by owner: n=%d err=%v", n, err)
	}
}
