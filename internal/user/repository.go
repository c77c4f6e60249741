package user

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository struct {
	col *mongo.Collection
}

type UserRepositoryInterface interface {
	Create(ctx context.Context, u *User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetByEmail(ctx context.Context, email string, includePassword bool) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAll(ctx context.Context) (int64, error)
	Search(ctx context.Context, query, location string) ([]*User, error)
	SetScores(ctx context.Context, id primitive.ObjectID, scores []float64, ranking int) error
	SetSkills(ctx context.Context, id primitive.ObjectID, skills []Skill) error
	EnsureIndexes(ctx context.Context) error
}

func NewUserRepository(db *mongo.Database) UserRepositoryInterface {
	return &UserRepository{col: db.Collection("users")}
}

// hashless excludes the password hash from read results. Only the login
// path selects it, via GetByEmail's includePassword flag.
var hashless = bson.M{"password": 0}

// EnsureIndexes creates the unique email index and the text index that
// backs free-text search.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "firstName", Value: "text"},
				{Key: "lastName", Value: "text"},
				{Key: "location", Value: "text"},
			},
		},
	})
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *User) (primitive.ObjectID, error) {
	u.CreatedAt = time.Now()
	if u.Role == "" {
		u.Role = RoleUser
	}

	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrEmailTaken
		}
		logrus.WithError(err).Error("Failed to create user")
		return primitive.NilObjectID, err
	}

	oid := res.InsertedID.(primitive.ObjectID)

	logrus.WithFields(logrus.Fields{
		"user_id": oid.Hex(),
		"email":   u.Email,
	}).Info("User created successfully")

	return oid, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	opts := options.FindOne().SetProjection(hashless)

	u := &User{}
	err := r.col.FindOne(ctx, bson.M{"_id": id}, opts).Decode(u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			logrus.WithField("user_id", id.Hex()).Warn("User not found")
			return nil, ErrNotFound
		}
		logrus.WithError(err).Error("Failed to get user by ID")
		return nil, err
	}

	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string, includePassword bool) (*User, error) {
	opts := options.FindOne()
	if !includePassword {
		opts.SetProjection(hashless)
	}

	u := &User{}
	err := r.col.FindOne(ctx, bson.M{"email": email}, opts).Decode(u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		logrus.WithError(err).Error("Failed to get user by email")
		return nil, err
	}

	return u, nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]*User, error) {
	opts := options.Find().SetProjection(hashless)

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to list users")
		return nil, err
	}
	defer cur.Close(ctx)

	users := []*User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Search filters by optional free-text query (text index) and optional
// case-insensitive location substring.
func (r *UserRepository) Search(ctx context.Context, query, location string) ([]*User, error) {
	filter := bson.M{}
	if query != "" {
		filter["$text"] = bson.M{"$search": query}
	}
	if location != "" {
		filter["location"] = primitive.Regex{Pattern: regexp.QuoteMeta(location), Options: "i"}
	}

	opts := options.Find().SetProjection(hashless)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to search users")
		return nil, err
	}
	defer cur.Close(ctx)

	users := []*User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		logrus.WithError(err).Error("Failed to update user")
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	logrus.WithField("user_id", id.Hex()).Info("User updated successfully")
	return nil
}

func (r *UserRepository) SetScores(ctx context.Context, id primitive.ObjectID, scores []float64, ranking int) error {
	return r.Update(ctx, id, bson.M{"scores": scores, "ranking": ranking})
}

func (r *UserRepository) SetSkills(ctx context.Context, id primitive.ObjectID, skills []Skill) error {
	return r.Update(ctx, id, bson.M{"skills": skills})
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logrus.WithError(err).Error("Failed to delete user")
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	logrus.WithField("user_id", id.Hex()).Info("User deleted")
	return nil
}

func (r *UserRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		logrus.WithError(err).Error("Failed to delete users")
		return 0, err
	}

	logrus.WithField("deleted", res.DeletedCount).Warn("All users deleted")
	return res.DeletedCount, nil
}
