package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/recipe"
	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/observability"
	"github.com/geocoder89/recipedia/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// liked_by is aggregated so the count can never drift from the set.
const recipeSelect = `
	SELECT r.id, r.title, r.description, r.ingredients, r.image, r.user_id, r.created_at, r.updated_at,
	       COALESCE((
	           SELECT array_agg(l.user_id::text ORDER BY l.created_at, l.user_id)
	           FROM recipe_likes l
	           WHERE l.recipe_id = r.id
	       ), '{}') AS liked_by
	FROM recipes r`

type RecipesRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewRecipesRepo(pool *pgxpool.Pool, prom *observability.Prom) *RecipesRepo {
	return &RecipesRepo{pool: pool, observer: observer{prom: prom}}
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func scanRecipe(row pgx.Row) (recipe.Recipe, error) {
	var r recipe.Recipe
	err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Description,
		&r.Ingredients,
		&r.Image,
		&r.UserID,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.LikedBy,
	)
	if err != nil {
		return recipe.Recipe{}, err
	}

	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.LikedBy == nil {
		r.LikedBy = []string{}
	}
	r.Likes = len(r.LikedBy)
	r.Comments = []recipe.Comment{}

	return r, nil
}

// attachComments loads comments for every recipe in one round trip.
func (repo *RecipesRepo) attachComments(ctx context.Context, q interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}, items []recipe.Recipe) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, 0, len(items))
	index := make(map[string]int, len(items))
	for i, it := range items {
		ids = append(ids, it.ID)
		index[it.ID] = i
	}

	return repo.observe("recipes.load_comments", func() error {
		rows, err := q.Query(ctx, `
			SELECT id, recipe_id, user_id, username, text, created_at
			FROM recipe_comments
			WHERE recipe_id = ANY($1::uuid[])
			ORDER BY created_at ASC, id ASC`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c recipe.Comment
			var recipeID string
			if err := rows.Scan(&c.ID, &recipeID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
				return err
			}
			if i, ok := index[recipeID]; ok {
				items[i].Comments = append(items[i].Comments, c)
			}
		}
		return rows.Err()
	})
}

func (repo *RecipesRepo) Create(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error) {
	err := repo.observe("recipes.create", func() error {
		_, err := repo.pool.Exec(ctx, `
			INSERT INTO recipes (id, title, description, ingredients, image, user_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			r.ID, r.Title, r.Description, r.Ingredients, r.Image, r.UserID, r.CreatedAt, r.UpdatedAt,
		)
		return err
	})
	if err != nil {
		// user_id references users, so a deleted owner surfaces here
		if isForeignKeyViolation(err) {
			return recipe.Recipe{}, user.ErrNotFound
		}
		return recipe.Recipe{}, err
	}

	r.LikedBy = []string{}
	r.Likes = 0
	r.Comments = []recipe.Comment{}
	return r, nil
}

func (repo *RecipesRepo) GetByID(ctx context.Context, id string) (recipe.Recipe, error) {
	if !utils.IsUUID(id) {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	var r recipe.Recipe
	err := repo.observe("recipes.get_by_id", func() error {
		var err error
		r, err = scanRecipe(repo.pool.QueryRow(ctx, recipeSelect+` WHERE r.id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recipe.Recipe{}, recipe.ErrNotFound
		}
		return recipe.Recipe{}, err
	}

	items := []recipe.Recipe{r}
	if err := repo.attachComments(ctx, repo.pool, items); err != nil {
		return recipe.Recipe{}, err
	}
	return items[0], nil
}

// ListCursor returns up to filter.Limit recipes older than after, newest first.
func (repo *RecipesRepo) ListCursor(ctx context.Context, filter recipe.ListFilter, after recipe.Cursor) ([]recipe.Recipe, bool, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = recipe.DefaultListLimit
	}

	var conds []string
	var args []interface{}
	argsPosition := 1

	if filter.UserID != nil {
		if !utils.IsUUID(*filter.UserID) {
			return []recipe.Recipe{}, false, nil
		}
		conds = append(conds, fmt.Sprintf("r.user_id = $%d", argsPosition))
		args = append(args, *filter.UserID)
		argsPosition++
	}

	if filter.Query != nil && strings.TrimSpace(*filter.Query) != "" {
		conds = append(conds, fmt.Sprintf("(r.title ILIKE $%d OR r.description ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+escapeLike(strings.TrimSpace(*filter.Query))+"%")
		argsPosition++
	}

	if !after.IsZero() {
		if !utils.IsUUID(after.ID) {
			return []recipe.Recipe{}, false, nil
		}
		conds = append(conds, fmt.Sprintf("(r.created_at, r.id) < ($%d, $%d::uuid)", argsPosition, argsPosition+1))
		args = append(args, after.CreatedAt, after.ID)
		argsPosition += 2
	}

	query := recipeSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	// fetch one extra row to learn whether another page exists
	query += fmt.Sprintf(" ORDER BY r.created_at DESC, r.id DESC LIMIT $%d", argsPosition)
	args = append(args, limit+1)

	out := make([]recipe.Recipe, 0, limit+1)
	err := repo.observe("recipes.list_cursor", func() error {
		rows, err := repo.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRecipe(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, false, err
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}

	if err := repo.attachComments(ctx, repo.pool, out); err != nil {
		return nil, false, err
	}
	return out, hasMore, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (repo *RecipesRepo) Update(ctx context.Context, id string, req recipe.UpdateRecipeRequest) (recipe.Recipe, error) {
	if !utils.IsUUID(id) {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	var affected int64
	err := repo.observe("recipes.update", func() error {
		tag, err := repo.pool.Exec(ctx, `
			UPDATE recipes
			SET title = $2,
			    description = $3,
			    ingredients = $4,
			    image = $5,
			    updated_at = $6
			WHERE id = $1`,
			id, req.Title, req.Description, req.Ingredients, req.Image, time.Now().UTC(),
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return recipe.Recipe{}, err
	}
	if affected == 0 {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	return repo.GetByID(ctx, id)
}

func (repo *RecipesRepo) Delete(ctx context.Context, id string) error {
	if !utils.IsUUID(id) {
		return recipe.ErrNotFound
	}

	var affected int64
	err := repo.observe("recipes.delete", func() error {
		tag, err := repo.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return recipe.ErrNotFound
	}
	return nil
}

func (repo *RecipesRepo) DeleteByOwner(ctx context.Context, userID string) (int64, error) {
	if !utils.IsUUID(userID) {
		return 0, nil
	}

	var affected int64
	err := repo.observe("recipes.delete_by_owner", func() error {
		tag, err := repo.pool.Exec(ctx, `DELETE FROM recipes WHERE user_id = $1`, userID)
		affected = tag.RowsAffected()
		return err
	})
	return affected, err
}

// Like records the caller's like once; the (recipe_id, user_id) key makes repeats no-ops.
func (repo *RecipesRepo) Like(ctx context.Context, id, userID string) (int, error) {
	return repo.toggleLike(ctx, "recipes.like", id, `
		INSERT INTO recipe_likes (recipe_id, user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (recipe_id, user_id) DO NOTHING`, userID)
}

func (repo *RecipesRepo) Unlike(ctx context.Context, id, userID string) (int, error) {
	return repo.toggleLike(ctx, "recipes.unlike", id, `
		DELETE FROM recipe_likes WHERE recipe_id = $1 AND user_id = $2`, userID)
}

func (repo *RecipesRepo) toggleLike(ctx context.Context, op, id, stmt, userID string) (likes int, err error) {
	if !utils.IsUUID(id) || !utils.IsUUID(userID) {
		return 0, recipe.ErrNotFound
	}

	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// lock the recipe row so concurrent likes serialize on the count
	err = repo.observe(op+".lock", func() error {
		var found string
		return tx.QueryRow(ctx, `SELECT id FROM recipes WHERE id = $1 FOR UPDATE`, id).Scan(&found)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, recipe.ErrNotFound
		}
		return 0, err
	}

	err = repo.observe(op, func() error {
		_, err := tx.Exec(ctx, stmt, id, userID)
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, recipe.ErrNotFound
		}
		return 0, err
	}

	err = repo.observe(op+".count", func() error {
		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM recipe_likes WHERE recipe_id = $1`, id).Scan(&likes)
	})
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return likes, nil
}

func (repo *RecipesRepo) AddComment(ctx context.Context, id string, c recipe.Comment) (recipe.Recipe, error) {
	if !utils.IsUUID(id) {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	err := repo.observe("recipes.add_comment", func() error {
		_, err := repo.pool.Exec(ctx, `
			INSERT INTO recipe_comments (id, recipe_id, user_id, username, text, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			c.ID, id, c.UserID, c.Username, c.Text, c.CreatedAt,
		)
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return recipe.Recipe{}, recipe.ErrNotFound
		}
		return recipe.Recipe{}, err
	}

	return repo.GetByID(ctx, id)
}

func (repo *RecipesRepo) Ping(ctx context.Context) error {
	return repo.pool.Ping(ctx)
}
