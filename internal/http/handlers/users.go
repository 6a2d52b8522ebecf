package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/http/middlewares"
	"github.com/geocoder89/recipedia/internal/utils"
	"github.com/gin-gonic/gin"
)

type UsersHandler struct {
	users   UsersStore
	recipes RecipesStore
	cache   ListCache
	log     *slog.Logger
}

func NewUsersHandler(users UsersStore, recipes RecipesStore, cache ListCache, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{users: users, recipes: recipes, cache: cache, log: log}
}

// callerID pulls the authenticated user id or writes a 401.
func callerID(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return "", false
	}
	return userID, true
}

func (h *UsersHandler) GetProfile(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "get profile failed", "err", err)
		RespondInternal(ctx, "Could not fetch profile")
		return
	}

	RespondOK(ctx, "", u)
}

func (h *UsersHandler) UpdateProfile(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	// email and password are not fields of the request type, so they are dropped here
	var req user.UpdateProfileRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	var (
		u   user.User
		err error
	)
	if req.IsEmpty() {
		u, err = h.users.GetByID(cctx, userID)
	} else {
		u, err = h.users.Update(cctx, userID, req)
	}

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "update profile failed", "err", err)
		RespondInternal(ctx, "Could not update profile")
		return
	}

	RespondOK(ctx, "Profile updated successfully", u)
}

// DeleteProfile removes the account and every recipe it owns.
func (h *UsersHandler) DeleteProfile(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, 5*time.Second)
	defer cancel()

	if err := h.users.Delete(cctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "delete user failed", "err", err)
		RespondInternal(ctx, "Could not delete account")
		return
	}

	if h.recipes != nil {
		removed, err := h.recipes.DeleteByOwner(cctx, userID)
		if err != nil {
			// the account is gone already; orphaned recipes are logged for cleanup
			h.log.ErrorContext(ctx.Request.Context(), "delete user recipes failed", "err", err, "user_id", userID)
		} else {
			h.log.InfoContext(ctx.Request.Context(), "account deleted", "user_id", userID, "recipes_removed", removed)
		}
	}

	if h.cache != nil {
		h.cache.ClearPrefix(ctx.Request.Context(), utils.RecipesListCachePrefix)
	}

	RespondOK(ctx, "Account deleted successfully", nil)
}

// ListUsers is admin only.
func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list users failed", "err", err)
		RespondInternal(ctx, "Could not list users")
		return
	}

	RespondOK(ctx, "", gin.H{
		"users": users,
		"count": len(users),
	})
}
