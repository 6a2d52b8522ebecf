package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateRecipeRequest, ownerID string) Recipe {
	now := time.Now().UTC()

	return Recipe{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Ingredients: CleanIngredients(req.Ingredients),
		Image:       strings.TrimSpace(req.Image),
		Likes:       0,
		LikedBy:     []string{},
		Comments:    []Comment{},
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewComment(userID, username, text string) Comment {
	return Comment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	}
}

// Normalize trims the create payload in place; validation runs on the result.
func (req *CreateRecipeRequest) Normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Ingredients = CleanIngredients(req.Ingredients)
	req.Image = strings.TrimSpace(req.Image)
}

// Normalize trims the update payload in place.
func (req *UpdateRecipeRequest) Normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Ingredients = CleanIngredients(req.Ingredients)
	req.Image = strings.TrimSpace(req.Image)
}

func (req *CommentRequest) Normalize() {
	req.Text = strings.TrimSpace(req.Text)
}
