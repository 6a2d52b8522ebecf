package user

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already exists")
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,notblank,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Age      int    `json:"age" binding:"required,min=1,max=120"`
	Gender   string `json:"gender" binding:"required,oneof=male female other prefer-not-to-say"`
	Address  string `json:"address" binding:"required,notblank,max=200"`
	Phone    string `json:"phone" binding:"required,notblank,max=30"`
}

// Normalize trims the free-text fields in place so length rules see the stored value.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the only fields a profile update may touch.
// Email and password are deliberately absent.
type UpdateProfileRequest struct {
	Username *string  `json:"username" binding:"omitnil,notblank,min=2,max=50"`
	Age      *FlexInt `json:"age" binding:"omitnil,min=1,max=120"`
	Gender   *string  `json:"gender" binding:"omitnil,oneof=male female other prefer-not-to-say"`
	Address  *string  `json:"address" binding:"omitnil,notblank,max=200"`
	Phone    *string  `json:"phone" binding:"omitnil,notblank,max=30"`
}

// FlexInt decodes from a JSON number or a numeric string, so an echoed form value like "31" binds.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)

	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(s))
	}

	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return &json.UnmarshalTypeError{Value: "string", Type: reflect.TypeOf(0)}
	}

	*n = FlexInt(v)
	return nil
}

// Normalize trims the set string fields in place.
func (r *UpdateProfileRequest) Normalize() {
	trimPtr(r.Username)
	trimPtr(r.Address)
	trimPtr(r.Phone)
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func (r UpdateProfileRequest) IsEmpty() bool {
	return r.Username == nil && r.Age == nil && r.Gender == nil && r.Address == nil && r.Phone == nil
}

// Apply copies the set fields onto u and bumps UpdatedAt.
func (r UpdateProfileRequest) Apply(u *User, now time.Time) {
	if r.Username != nil {
		u.Username = strings.TrimSpace(*r.Username)
	}
	if r.Age != nil {
		u.Age = int(*r.Age)
	}
	if r.Gender != nil {
		u.Gender = *r.Gender
	}
	if r.Address != nil {
		u.Address = strings.TrimSpace(*r.Address)
	}
	if r.Phone != nil {
		u.Phone = strings.TrimSpace(*r.Phone)
	}
	u.UpdatedAt = now
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewFromRegisterRequest builds a user with the default role. The caller hashes the password.
func NewFromRegisterRequest(req RegisterRequest, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(req.Username),
		Email:        NormalizeEmail(req.Email),
		PasswordHash: passwordHash,
		Age:          req.Age,
		Gender:       req.Gender,
		Address:      strings.TrimSpace(req.Address),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
