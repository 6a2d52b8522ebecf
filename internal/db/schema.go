package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// statements are idempotent so EnsureSchema can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		age           INT NOT NULL,
		gender        TEXT NOT NULL,
		address       TEXT NOT NULL,
		phone         TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_uniq ON users (email)`,

	`CREATE TABLE IF NOT EXISTS recipes (
		id          UUID PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL,
		ingredients TEXT[] NOT NULL DEFAULT '{}',
		image       TEXT NOT NULL DEFAULT '',
		user_id     UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS recipes_created_id_idx ON recipes (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS recipes_user_idx ON recipes (user_id)`,

	`CREATE TABLE IF NOT EXISTS recipe_likes (
		recipe_id  UUID NOT NULL REFERENCES recipes (id) ON DELETE CASCADE,
		user_id    UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (recipe_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS recipe_comments (
		id         UUID PRIMARY KEY,
		recipe_id  UUID NOT NULL REFERENCES recipes (id) ON DELETE CASCADE,
		user_id    UUID NOT NULL,
		username   TEXT NOT NULL DEFAULT '',
		text       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS recipe_comments_recipe_idx ON recipe_comments (recipe_id, created_at)`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
