package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/security"
	"github.com/gin-gonic/gin"
)

type TokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, error)
}

type AuthHandler struct {
	users UsersStore
	jwt   TokenIssuer
	log   *slog.Logger
}

func NewAuthHandler(users UsersStore, jwtManager TokenIssuer, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		users: users,
		jwt:   jwtManager,
		log:   log,
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSONWithMessage(ctx, &req, "All fields are required") {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "hash password failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)

	defer cancel()

	u, err := h.users.Create(cctx, user.NewFromRegisterRequest(req, hash))

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email already exists")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "create user failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	RespondCreated(ctx, "User registered successfully", AuthResponse{Token: token, User: u})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSONWithMessage(ctx, &req, "Email and password are required") {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.ErrorContext(ctx.Request.Context(), "lookup user failed", "err", err)
			RespondInternal(ctx, "Could not log in")
			return
		}
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
		return
	}

	token, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Email, foundUser.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	RespondOK(ctx, "Login successful", AuthResponse{Token: token, User: foundUser})
}
