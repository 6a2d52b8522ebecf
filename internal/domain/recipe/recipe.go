package recipe

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("recipe not found")
	ErrForbidden = errors.New("recipe belongs to another user")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	Username  string    `json:"username,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Recipe struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Ingredients []string  `json:"ingredients"`
	Image       string    `json:"image,omitempty"`
	Likes       int       `json:"likes"`
	LikedBy     []string  `json:"likedBy"`
	Comments    []Comment `json:"comments"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID may modify the recipe as its owner.
func (r Recipe) OwnedBy(userID string) bool {
	return userID != "" && r.UserID == userID
}

func (r Recipe) LikedByUser(userID string) bool {
	for _, id := range r.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

type CreateRecipeRequest struct {
	Title       string   `json:"title" binding:"required,notblank,min=3,max=120"`
	Description string   `json:"description" binding:"required,notblank,max=2000"`
	Ingredients []string `json:"ingredients" binding:"required,min=1,max=100,dive,max=200"`
	Image       string   `json:"image" binding:"omitempty,url,max=2048"`
}

// full replacement of the editable fields, same rules as create.
type UpdateRecipeRequest struct {
	Title       string   `json:"title" binding:"required,notblank,min=3,max=120"`
	Description string   `json:"description" binding:"required,notblank,max=2000"`
	Ingredients []string `json:"ingredients" binding:"required,min=1,max=100,dive,max=200"`
	Image       string   `json:"image" binding:"omitempty,url,max=2048"`
}

type CommentRequest struct {
	Text string `json:"text" binding:"required,notblank,max=1000"`
}

type ListFilter struct {
	Query  *string
	UserID *string
	Limit  int
}

// Cursor marks the last item of the previous page; zero value means first page.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func (c Cursor) IsZero() bool {
	return c.ID == "" && c.CreatedAt.IsZero()
}

// After reports whether r sorts after the cursor in newest-first order.
func (c Cursor) After(r Recipe) bool {
	if c.IsZero() {
		return true
	}
	if r.CreatedAt.Equal(c.CreatedAt) {
		return r.ID < c.ID
	}
	return r.CreatedAt.Before(c.CreatedAt)
}

// CleanIngredients trims items and drops blanks. A nil list stays nil.
func CleanIngredients(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}

// Matches applies the text and owner filters the way the stores do.
func (f ListFilter) Matches(r Recipe) bool {
	if f.UserID != nil && r.UserID != *f.UserID {
		return false
	}
	if f.Query != nil {
		q := strings.ToLower(strings.TrimSpace(*f.Query))
		if q != "" &&
			!strings.Contains(strings.ToLower(r.Title), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) {
			return false
		}
	}
	return true
}
