package utils

import (
	"strconv"
	"strings"
)

const RecipesListCachePrefix = "recipes:list:v1:"

func BuildRecipesListCacheKey(limit int, cursor string, query, userID *string) string {
	q := ""
	if query != nil {
		q = strings.ToLower(strings.TrimSpace(*query))
	}
	u := ""
	if userID != nil {
		u = *userID
	}

	return RecipesListCachePrefix + "limit=" + strconv.Itoa(limit) +
		":cursor=" + cursor +
		":q=" + q +
		":user=" + u
}
