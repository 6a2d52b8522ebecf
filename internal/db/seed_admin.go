package db

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/recipedia/internal/config"
	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/security"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the bootstrap admin once. Works against any store driver.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists
	_, err := users.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	u := user.NewFromRegisterRequest(user.RegisterRequest{
		Username: strings.TrimSpace(cfg.AdminUsername),
		Email:    cfg.AdminEmail,
		Age:      1,
		Gender:   "prefer-not-to-say",
	}, hash)
	u.Role = user.RoleAdmin

	_, err = users.Create(ctx, u)

	// a concurrent boot may have won the race
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}

	return err
}
