package mongodb

import (
	"context"
	"time"

	"github.com/geocoder89/recipedia/internal/domain/user"
	"github.com/geocoder89/recipedia/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	Age          int                `bson:"age"`
	Gender       string             `bson:"gender"`
	Address      string             `bson:"address"`
	Phone        string             `bson:"phone"`
	Role         string             `bson:"role"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d userDoc) toDomain() user.User {
	return user.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Age:          d.Age,
		Gender:       d.Gender,
		Address:      d.Address,
		Phone:        d.Phone,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type UsersRepo struct {
	collection *mongo.Collection
	observer
}

func NewUsersRepo(db *mongo.Database, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{
		collection: db.Collection(usersCollection),
		observer:   observer{prom: prom},
	}
}

// Create stores u under a fresh ObjectID; the returned user carries the hex id.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     u.Username,
		Email:        user.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Age:          u.Age,
		Gender:       u.Gender,
		Address:      u.Address,
		Phone:        u.Phone,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}

	err := r.observe("users.create", func() error {
		_, err := r.collection.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M) (user.User, error) {
	var doc userDoc
	err := r.observe(op, func() error {
		return r.collection.FindOne(ctx, filter).Decode(&doc)
	})
	if err != nil {
		if isNoDocuments(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return doc.toDomain(), nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.M{"email": user.NormalizeEmail(email)})
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	oid, ok := parseID(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.findOne(ctx, "users.get_by_id", bson.M{"_id": oid})
}

func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error) {
	oid, ok := parseID(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	var patch user.User
	req.Apply(&patch, time.Now().UTC())

	set := bson.M{"updatedAt": patch.UpdatedAt}
	if req.Username != nil {
		set["username"] = patch.Username
	}
	if req.Age != nil {
		set["age"] = patch.Age
	}
	if req.Gender != nil {
		set["gender"] = patch.Gender
	}
	if req.Address != nil {
		set["address"] = patch.Address
	}
	if req.Phone != nil {
		set["phone"] = patch.Phone
	}

	var doc userDoc
	err := r.observe("users.update", func() error {
		return r.collection.FindOneAndUpdate(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
	})
	if err != nil {
		if isNoDocuments(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return doc.toDomain(), nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return user.ErrNotFound
	}

	var res *mongo.DeleteResult
	err := r.observe("users.delete", func() error {
		var err error
		res, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
		return err
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe("users.list", func() error {
		cur, err := r.collection.Find(ctx, bson.M{},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc userDoc
			if err := cur.Decode(&doc); err != nil {
				return err
			}
			out = append(out, doc.toDomain())
		}
		return cur.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}
