package mongodb

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/recipe"
	"github.com/geocoder89/recipedia/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type commentDoc struct {
	ID        string    `bson:"id"`
	UserID    string    `bson:"user"`
	Username  string    `bson:"username"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"createdAt"`
}

type recipeDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Ingredients []string           `bson:"ingredients"`
	Image       string             `bson:"image,omitempty"`
	Likes       int                `bson:"likes"`
	LikedBy     []string           `bson:"likedBy"`
	Comments    []commentDoc       `bson:"comments"`
	UserID      string             `bson:"userId"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d recipeDoc) toDomain() recipe.Recipe {
	r := recipe.Recipe{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Ingredients: append([]string{}, d.Ingredients...),
		Image:       d.Image,
		LikedBy:     append([]string{}, d.LikedBy...),
		Comments:    make([]recipe.Comment, 0, len(d.Comments)),
		UserID:      d.UserID,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	r.Likes = len(r.LikedBy)

	for _, c := range d.Comments {
		r.Comments = append(r.Comments, recipe.Comment{
			ID:        c.ID,
			UserID:    c.UserID,
			Username:  c.Username,
			Text:      c.Text,
			CreatedAt: c.CreatedAt.UTC(),
		})
	}
	return r
}

type RecipesRepo struct {
	collection *mongo.Collection
	observer
}

func NewRecipesRepo(db *mongo.Database, prom *observability.Prom) *RecipesRepo {
	return &RecipesRepo{
		collection: db.Collection(recipesCollection),
		observer:   observer{prom: prom},
	}
}

func (repo *RecipesRepo) Create(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error) {
	doc := recipeDoc{
		ID:          primitive.NewObjectID(),
		Title:       r.Title,
		Description: r.Description,
		Ingredients: append([]string{}, r.Ingredients...),
		Image:       r.Image,
		Likes:       0,
		LikedBy:     []string{},
		Comments:    []commentDoc{},
		UserID:      r.UserID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	err := repo.observe("recipes.create", func() error {
		_, err := repo.collection.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return recipe.Recipe{}, err
	}
	return doc.toDomain(), nil
}

func (repo *RecipesRepo) GetByID(ctx context.Context, id string) (recipe.Recipe, error) {
	oid, ok := parseID(id)
	if !ok {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	var doc recipeDoc
	err := repo.observe("recipes.get_by_id", func() error {
		return repo.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	})
	if err != nil {
		if isNoDocuments(err) {
			return recipe.Recipe{}, recipe.ErrNotFound
		}
		return recipe.Recipe{}, err
	}
	return doc.toDomain(), nil
}

func (repo *RecipesRepo) ListCursor(ctx context.Context, filter recipe.ListFilter, after recipe.Cursor) ([]recipe.Recipe, bool, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = recipe.DefaultListLimit
	}

	conds := bson.A{}

	if filter.UserID != nil {
		conds = append(conds, bson.M{"userId": *filter.UserID})
	}

	if filter.Query != nil && strings.TrimSpace(*filter.Query) != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(*filter.Query)), Options: "i"}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}})
	}

	if !after.IsZero() {
		oid, ok := parseID(after.ID)
		if !ok {
			return []recipe.Recipe{}, false, nil
		}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"createdAt": bson.M{"$lt": after.CreatedAt}},
			bson.M{"createdAt": after.CreatedAt, "_id": bson.M{"$lt": oid}},
		}})
	}

	query := bson.M{}
	if len(conds) > 0 {
		query = bson.M{"$and": conds}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))

	out := make([]recipe.Recipe, 0, limit+1)
	err := repo.observe("recipes.list_cursor", func() error {
		cur, err := repo.collection.Find(ctx, query, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc recipeDoc
			if err := cur.Decode(&doc); err != nil {
				return err
			}
			out = append(out, doc.toDomain())
		}
		return cur.Err()
	})
	if err != nil {
		return nil, false, err
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return out, hasMore, nil
}

// findAndModify applies update to the recipe matched by filter and returns it after the change.
func (repo *RecipesRepo) findAndModify(ctx context.Context, op string, filter, update bson.M) (recipeDoc, error) {
	var doc recipeDoc
	err := repo.observe(op, func() error {
		return repo.collection.FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
	})
	return doc, err
}

func (repo *RecipesRepo) Update(ctx context.Context, id string, req recipe.UpdateRecipeRequest) (recipe.Recipe, error) {
	oid, ok := parseID(id)
	if !ok {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	doc, err := repo.findAndModify(ctx, "recipes.update", bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":       req.Title,
		"description": req.Description,
		"ingredients": req.Ingredients,
		"image":       req.Image,
		"updatedAt":   time.Now().UTC(),
	}})
	if err != nil {
		if isNoDocuments(err) {
			return recipe.Recipe{}, recipe.ErrNotFound
		}
		return recipe.Recipe{}, err
	}
	return doc.toDomain(), nil
}

func (repo *RecipesRepo) Delete(ctx context.Context, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return recipe.ErrNotFound
	}

	var res *mongo.DeleteResult
	err := repo.observe("recipes.delete", func() error {
		var err error
		res, err = repo.collection.DeleteOne(ctx, bson.M{"_id": oid})
		return err
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return recipe.ErrNotFound
	}
	return nil
}

func (repo *RecipesRepo) DeleteByOwner(ctx context.Context, userID string) (int64, error) {
	var res *mongo.DeleteResult
	err := repo.observe("recipes.delete_by_owner", func() error {
		var err error
		res, err = repo.collection.DeleteMany(ctx, bson.M{"userId": userID})
		return err
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Like adds userID to likedBy once. The $ne guard makes a repeat like match nothing,
// so likes and likedBy move together.
func (repo *RecipesRepo) Like(ctx context.Context, id, userID string) (int, error) {
	oid, ok := parseID(id)
	if !ok {
		return 0, recipe.ErrNotFound
	}

	doc, err := repo.findAndModify(ctx, "recipes.like",
		bson.M{"_id": oid, "likedBy": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likedBy": userID}, "$inc": bson.M{"likes": 1}},
	)
	if err == nil {
		return len(doc.LikedBy), nil
	}
	if !isNoDocuments(err) {
		return 0, err
	}

	// already liked, or the recipe does not exist
	current, err := repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return current.Likes, nil
}

func (repo *RecipesRepo) Unlike(ctx context.Context, id, userID string) (int, error) {
	oid, ok := parseID(id)
	if !ok {
		return 0, recipe.ErrNotFound
	}

	doc, err := repo.findAndModify(ctx, "recipes.unlike",
		bson.M{"_id": oid, "likedBy": userID},
		bson.M{"$pull": bson.M{"likedBy": userID}, "$inc": bson.M{"likes": -1}},
	)
	if err == nil {
		return len(doc.LikedBy), nil
	}
	if !isNoDocuments(err) {
		return 0, err
	}

	current, err := repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return current.Likes, nil
}

func (repo *RecipesRepo) AddComment(ctx context.Context, id string, c recipe.Comment) (recipe.Recipe, error) {
	oid, ok := parseID(id)
	if !ok {
		return recipe.Recipe{}, recipe.ErrNotFound
	}

	doc, err := repo.findAndModify(ctx, "recipes.add_comment", bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"comments": commentDoc{
			ID:        c.ID,
			UserID:    c.UserID,
			Username:  c.Username,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		}},
	})
	if err != nil {
		if isNoDocuments(err) {
			return recipe.Recipe{}, recipe.ErrNotFound
		}
		return recipe.Recipe{}, err
	}
	return doc.toDomain(), nil
}

func (repo *RecipesRepo) Ping(ctx context.Context) error {
	return repo.collection.Database().Client().Ping(ctx, nil)
}
