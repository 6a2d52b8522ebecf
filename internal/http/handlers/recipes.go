package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/recipe"
	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/http/middlewares"
	"github.com/geocoder89/recipedia/internal/utils"
	"github.com/gin-gonic/gin"
)

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type RecipesHandler struct {
	repo     RecipesStore
	users    UserGetter
	cache    ListCache
	observer CacheObserver
	log      *slog.Logger
}

func NewRecipesHandler(repo RecipesStore, users UserGetter, cache ListCache, observer CacheObserver, log *slog.Logger) *RecipesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RecipesHandler{
		repo:     repo,
		users:    users,
		cache:    cache,
		observer: observer,
		log:      log,
	}
}

// RecipePage is the data of a list response.
type RecipePage struct {
	Recipes    []recipe.Recipe `json:"recipes"`
	Count      int             `json:"count"`
	NextCursor *string         `json:"nextCursor"`
	HasMore    bool            `json:"hasMore"`
}

type LikeResponse struct {
	Likes int  `json:"likes"`
	Liked bool `json:"liked"`
}

func (h *RecipesHandler) invalidateList(ctx *gin.Context) {
	if h.cache != nil {
		h.cache.ClearPrefix(ctx.Request.Context(), utils.RecipesListCachePrefix)
	}
}

// loadCaller confirms the token's account still exists before a write.
// It writes the error response itself and reports whether to continue.
func (h *RecipesHandler) loadCaller(ctx *gin.Context, userID string) (user.User, bool) {
	if h.users == nil {
		return user.User{ID: userID}, true
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	switch {
	case err == nil:
		return u, true
	case errors.Is(err, user.ErrNotFound):
		RespondUnAuthorized(ctx, "account_not_found", "Account no longer exists")
	default:
		h.log.ErrorContext(ctx.Request.Context(), "caller lookup failed", "err", err)
		RespondInternal(ctx, "Could not verify account")
	}
	return user.User{}, false
}

func (h *RecipesHandler) observeCache(hit bool) {
	if h.observer != nil {
		h.observer.ObserveCache(hit)
	}
}

func optionalQuery(ctx *gin.Context, key string) *string {
	v := strings.TrimSpace(ctx.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func (h *RecipesHandler) ListRecipes(ctx *gin.Context) {
	limit := recipe.DefaultListLimit

	if raw := strings.TrimSpace(ctx.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "limit must be a positive integer", gin.H{"limit": raw})
			return
		}
		limit = min(n, recipe.MaxListLimit)
	}

	rawCursor := strings.TrimSpace(ctx.Query("cursor"))
	var after recipe.Cursor

	if rawCursor != "" {
		c, err := utils.DecodeRecipeCursor(rawCursor)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}
		after = recipe.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	}

	filter := recipe.ListFilter{
		Query:  optionalQuery(ctx, "q"),
		UserID: optionalQuery(ctx, "userId"),
		Limit:  limit,
	}

	key := utils.BuildRecipesListCacheKey(limit, rawCursor, filter.Query, filter.UserID)

	var gen uint64
	if h.cache != nil {
		// read before the store so a write that lands mid-read voids this fill
		gen = h.cache.Generation(ctx.Request.Context())

		if body, ok := h.cache.Get(ctx.Request.Context(), key); ok {
			h.observeCache(true)
			ctx.Header("X-Cache", "HIT")
			RespondRawJSONWithETag(ctx, http.StatusOK, body)
			return
		}
		h.observeCache(false)
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	items, hasMore, err := h.repo.ListCursor(cctx, filter, after)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list recipes failed", "err", err)
		RespondInternal(ctx, "Could not list recipes")
		return
	}

	page := RecipePage{
		Recipes: items,
		Count:   len(items),
		HasMore: hasMore,
	}

	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		next, err := utils.EncodeRecipeCursor(last.CreatedAt, last.ID)
		if err != nil {
			RespondInternal(ctx, "Could not build next cursor")
			return
		}
		page.NextCursor = &next
	}

	body, err := json.Marshal(Envelope{Success: true, Data: page})
	if err != nil {
		RespondInternal(ctx, "Could not encode recipes")
		return
	}

	if h.cache != nil {
		if !h.cache.SetIfGeneration(ctx.Request.Context(), key, body, gen) {
			h.log.DebugContext(ctx.Request.Context(), "list cache fill skipped", "key", key)
		}
		ctx.Header("X-Cache", "MISS")
	}

	RespondRawJSONWithETag(ctx, http.StatusOK, body)
}

func (h *RecipesHandler) GetRecipe(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	r, err := h.repo.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		h.respondStoreError(ctx, err, "Could not fetch recipe")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, Envelope{Success: true, Data: r})
}

func (h *RecipesHandler) CreateRecipe(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req recipe.CreateRecipeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	if _, ok := h.loadCaller(ctx, userID); !ok {
		return
	}

	created, err := h.repo.Create(cctx, recipe.NewFromCreateRequest(req, userID))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "account_not_found", "Account no longer exists")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "create recipe failed", "err", err)
		RespondInternal(ctx, "Could not create recipe")
		return
	}

	h.invalidateList(ctx)

	RespondCreated(ctx, "Recipe created successfully", created)
}

// authorizeOwner loads the recipe and checks the caller may modify it.
// It writes the error response itself and reports whether to continue.
func (h *RecipesHandler) authorizeOwner(ctx *gin.Context, id string) bool {
	userID, ok := callerID(ctx)
	if !ok {
		return false
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)
	if err != nil {
		h.respondStoreError(ctx, err, "Could not fetch recipe")
		return false
	}

	role, _ := middlewares.RoleFromContext(ctx)
	if !existing.OwnedBy(userID) && role != user.RoleAdmin {
		RespondForbidden(ctx, "You can only modify your own recipes")
		return false
	}
	return true
}

func (h *RecipesHandler) UpdateRecipe(ctx *gin.Context) {
	id := ctx.Param("id")

	var req recipe.UpdateRecipeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if !h.authorizeOwner(ctx, id) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, id, req)
	if err != nil {
		h.respondStoreError(ctx, err, "Could not update recipe")
		return
	}

	h.invalidateList(ctx)

	RespondOK(ctx, "Recipe updated successfully", updated)
}

func (h *RecipesHandler) DeleteRecipe(ctx *gin.Context) {
	id := ctx.Param("id")

	if !h.authorizeOwner(ctx, id) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		h.respondStoreError(ctx, err, "Could not delete recipe")
		return
	}

	h.invalidateList(ctx)

	RespondOK(ctx, "Recipe deleted successfully", nil)
}

func (h *RecipesHandler) LikeRecipe(ctx *gin.Context) {
	h.toggleLike(ctx, true)
}

func (h *RecipesHandler) UnlikeRecipe(ctx *gin.Context) {
	h.toggleLike(ctx, false)
}

func (h *RecipesHandler) toggleLike(ctx *gin.Context, like bool) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	if _, ok := h.loadCaller(ctx, userID); !ok {
		return
	}

	var (
		likes int
		err   error
	)
	if like {
		likes, err = h.repo.Like(cctx, ctx.Param("id"), userID)
	} else {
		likes, err = h.repo.Unlike(cctx, ctx.Param("id"), userID)
	}

	if err != nil {
		h.respondStoreError(ctx, err, "Could not update like")
		return
	}

	h.invalidateList(ctx)

	RespondOK(ctx, "", LikeResponse{Likes: likes, Liked: like})
}

func (h *RecipesHandler) AddComment(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req recipe.CommentRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	author, ok := h.loadCaller(ctx, userID)
	if !ok {
		return
	}

	updated, err := h.repo.AddComment(cctx, ctx.Param("id"), recipe.NewComment(userID, author.Username, req.Text))
	if err != nil {
		h.respondStoreError(ctx, err, "Could not add comment")
		return
	}

	h.invalidateList(ctx)

	RespondCreated(ctx, "Comment added successfully", updated)
}

func (h *RecipesHandler) respondStoreError(ctx *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, recipe.ErrNotFound):
		RespondNotFound(ctx, "Recipe not found")
	case errors.Is(err, recipe.ErrForbidden):
		RespondForbidden(ctx, "You can only modify your own recipes")
	default:
		h.log.ErrorContext(ctx.Request.Context(), message, "err", err)
		RespondInternal(ctx, message)
	}
}
