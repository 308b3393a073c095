package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dias221467/social-network/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrUserNotFound is returned when no account document matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateKey is returned when a write violates the unique email or phone index.
	ErrDuplicateKey = errors.New("duplicate key")
)

// UserRepository handles database operations related to user accounts.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection(UsersCollection),
	}
}

// UsersCollection is the name of the account collection.
const UsersCollection = "users"

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			logrus.WithField("email", user.Email).Warn("Duplicate email or phone number on insert")
			return nil, fmt.Errorf("failed to insert user: %w", ErrDuplicateKey)
		}
		logrus.WithError(err).Error("Failed to insert user into database")
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logrus.Error("Failed to cast inserted ID to ObjectID")
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	user.ID = insertedID

	logrus.WithField("userID", user.ID.Hex()).Info("User inserted successfully")
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, logrus.Fields{"email": email})
}

// GetUserByPhone retrieves a user by phone number.
func (r *UserRepository) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"phone_number": phone}, logrus.Fields{"phone": phone})
}

// GetUserByID retrieves a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, logrus.Fields{"userID": id.Hex()})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, fields logrus.Fields) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			logrus.WithFields(fields).Debug("User not found")
			return nil, ErrUserNotFound
		}
		logrus.WithFields(fields).WithError(err).Error("Failed to find user")
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// SaveUser replaces the whole stored document with user.
func (r *UserRepository) SaveUser(ctx context.Context, user *models.User) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to save user %s: %w", user.ID.Hex(), ErrDuplicateKey)
		}
		logrus.WithFields(logrus.Fields{
			"userID": user.ID.Hex(),
			"error":  err,
		}).Error("Failed to save user")
		return fmt.Errorf("failed to save user %s: %w", user.ID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateUser applies a partial update. Nil values are removed from the document.
func (r *UserRepository) UpdateUser(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	update := bson.M{}
	set := bson.M{}
	unset := bson.M{}
	for k, v := range fields {
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return nil
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to update user %s: %w", id.Hex(), ErrDuplicateKey)
		}
		logrus.WithFields(logrus.Fields{
			"userID": id.Hex(),
			"error":  err,
		}).Error("Failed to update user")
		return fmt.Errorf("failed to update user %s: %w", id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// IncrementFailedLogins adds one to the failed login counter in a single
// atomic update and returns the counter's new value.
func (r *UserRepository) IncrementFailedLogins(ctx context.Context, id primitive.ObjectID) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"failed_login_attempts": 1})

	var counter struct {
		FailedLoginAttempts int `bson:"failed_login_attempts"`
	}
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"failed_login_attempts": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrUserNotFound
		}
		logrus.WithField("userID", id.Hex()).WithError(err).Error("Failed to increment failed login counter")
		return 0, fmt.Errorf("failed to increment failed logins for %s: %w", id.Hex(), err)
	}
	return counter.FailedLoginAttempts, nil
}

// RelationshipLists is one account's side of the friendship graph.
type RelationshipLists struct {
	Friends  []primitive.ObjectID
	Sent     []primitive.ObjectID
	Received []primitive.ObjectID
}

// listFilter matches a stored list equal to ids. An empty list also matches a
// null or missing field.
func listFilter(ids []primitive.ObjectID) interface{} {
	if len(ids) == 0 {
		return bson.M{"$in": bson.A{nil, bson.A{}}}
	}
	return ids
}

// ReplaceRelationships writes next only if the stored lists still equal
// expected. It reports false, without error, when the document changed or
// no longer exists.
func (r *UserRepository) ReplaceRelationships(ctx context.Context, id primitive.ObjectID, expected, next RelationshipLists) (bool, error) {
	filter := bson.M{
		"_id":                    id,
		"friends":                listFilter(expected.Friends),
		"friendRequestsSent":     listFilter(expected.Sent),
		"friendRequestsReceived": listFilter(expected.Received),
	}
	update := bson.M{"$set": bson.M{
		"friends":                next.Friends,
		"friendRequestsSent":     next.Sent,
		"friendRequestsReceived": next.Received,
		"friends_count":          len(next.Friends),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithField("userID", id.Hex()).WithError(err).Error("Failed to replace relationship lists")
		return false, fmt.Errorf("failed to replace relationships of %s: %w", id.Hex(), err)
	}
	return result.MatchedCount == 1, nil
}

// GetAllUsers returns every account document.
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		users = append(users, &user)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// GetUsersByIDs fetches user details for a list of ObjectIDs (mainly for friend lists).
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by IDs: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]*models.User, 0, len(ids))
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}
