package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type RecipeCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeRecipeCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(RecipeCursor{CreatedAt: createdAt.UTC(), ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeRecipeCursor(cursor string) (RecipeCursor, error) {
	if cursor == "" {
		return RecipeCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return RecipeCursor{}, err
	}

	var c RecipeCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return RecipeCursor{}, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return RecipeCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}

func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
