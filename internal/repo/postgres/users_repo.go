package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/observability"
	"github.com/geocoder89/recipedia/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, password_hash, age, gender, address, phone, role, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	observer
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, observer: observer{prom: prom}}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Age,
		&u.Gender,
		&u.Address,
		&u.Phone,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.Age, u.Gender, u.Address, u.Phone, u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (u user.User, err error) {
	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			user.NormalizeEmail(email),
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	if !utils.IsUUID(id) {
		return user.User{}, user.ErrNotFound
	}

	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// Update writes only the fields present in req; COALESCE keeps the stored value otherwise.
func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateProfileRequest) (u user.User, err error) {
	if !utils.IsUUID(id) {
		return user.User{}, user.ErrNotFound
	}

	// trim through the domain so every store normalizes the same way
	var patch user.User
	req.Apply(&patch, time.Now().UTC())

	err = r.observe("users.update", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `
			UPDATE users
			SET username = COALESCE($2, username),
			    age = COALESCE($3, age),
			    gender = COALESCE($4, gender),
			    address = COALESCE($5, address),
			    phone = COALESCE($6, phone),
			    updated_at = $7
			WHERE id = $1
			RETURNING `+userColumns,
			id,
			pick(req.Username != nil, patch.Username),
			pick(req.Age != nil, patch.Age),
			pick(req.Gender != nil, patch.Gender),
			pick(req.Address != nil, patch.Address),
			pick(req.Phone != nil, patch.Phone),
			patch.UpdatedAt,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// pick returns v when set is true and nil (SQL NULL) otherwise.
func pick[T any](set bool, v T) *T {
	if !set {
		return nil
	}
	return &v
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	if !utils.IsUUID(id) {
		return user.ErrNotFound
	}

	var affected int64
	err := r.observe("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
