package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/http/handlers"
	"github.com/geocoder89/recipedia/internal/security"
)

const validRegisterBody = `{
	"username": "Ada",
	"email": "Ada@Example.com",
	"password": "password123",
	"age": 36,
	"gender": "female",
	"address": "12 Analytical Way",
	"phone": "555-0100"
}`

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repoSetUp      func(f *fakeUsersStore, called *bool)
		wantStatusCode int
		wantMessage    string
	}{
		{
			name: "success",
			body: validRegisterBody,
			repoSetUp: func(f *fakeUsersStore, called *bool) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					*called = true
					if u.Email != "ada@example.com" || u.Role != user.RoleUser {
						return user.User{}, errors.New("user not normalized")
					}
					if u.PasswordHash == "" || u.PasswordHash == "password123" {
						return user.User{}, errors.New("password not hashed")
					}
					return u, nil
				}
			},
			wantStatusCode: http.StatusCreated,
			wantMessage:    "User registered successfully",
		},
		{
			name: "missing_fields",
			body: `{"email":"ada@example.com","password":"password123"}`,
			repoSetUp: func(f *fakeUsersStore, called *bool) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					*called = true
					return u, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "All fields are required",
		},
		{
			name: "email_taken",
			body: validRegisterBody,
			repoSetUp: func(f *fakeUsersStore, called *bool) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					*called = true
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
			wantMessage:    "Email already exists",
		},
		{
			name: "repo_error",
			body: validRegisterBody,
			repoSetUp: func(f *fakeUsersStore, called *bool) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					*called = true
					return user.User{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}
			called := false
			tt.repoSetUp(store, &called)

			h := handlers.NewAuthHandler(store, fakeTokens{}, nil)
			r := setupRouter(http.MethodPost, "/auth/register", h.Register)

			w := serve(r, http.MethodPost, "/auth/register", tt.body, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusBadRequest && called {
				t.Fatalf("store should not be called on validation failure")
			}

			var resp struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
				Data    struct {
					Token string `json:"token"`
				} `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if tt.wantMessage != "" && resp.Message != tt.wantMessage {
				t.Fatalf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
			if tt.wantStatusCode == http.StatusCreated && (resp.Data.Token == "" || !resp.Success) {
				t.Fatalf("expected token in response, body=%s", w.Body.String())
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	stored := user.User{ID: "u-1", Email: "ada@example.com", PasswordHash: hash, Role: user.RoleUser}

	tests := []struct {
		name           string
		body           string
		getByEmail     func(ctx context.Context, email string) (user.User, error)
		tokens         fakeTokens
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{"email":"ada@example.com","password":"password123"}`,
			getByEmail: func(ctx context.Context, email string) (user.User, error) {
				return stored, nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing_password",
			body:           `{"email":"ada@example.com"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "wrong_password",
			body: `{"email":"ada@example.com","password":"letmein99"}`,
			getByEmail: func(ctx context.Context, email string) (user.User, error) {
				return stored, nil
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "unknown_email",
			body:           `{"email":"ghost@example.com","password":"password123"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "store_down",
			body: `{"email":"ada@example.com","password":"password123"}`,
			getByEmail: func(ctx context.Context, email string) (user.User, error) {
				return user.User{}, errors.New("connection refused")
			},
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name: "token_error",
			body: `{"email":"ada@example.com","password":"password123"}`,
			getByEmail: func(ctx context.Context, email string) (user.User, error) {
				return stored, nil
			},
			tokens:         fakeTokens{err: errors.New("sign failed")},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{getByEmailFn: tt.getByEmail}

			h := handlers.NewAuthHandler(store, tt.tokens, nil)
			r := setupRouter(http.MethodPost, "/auth/login", h.Login)

			w := serve(r, http.MethodPost, "/auth/login", tt.body, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusUnauthorized {
				var resp struct {
					Message string `json:"message"`
				}
				_ = json.Unmarshal(w.Body.Bytes(), &resp)
				if resp.Message != "Invalid credentials" {
					t.Fatalf("message = %q, want Invalid credentials", resp.Message)
				}
			}
		})
	}
}
