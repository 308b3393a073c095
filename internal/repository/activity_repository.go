package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/social-network/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActivitiesCollection is the name of the activity log collection.
const ActivitiesCollection = "activities"

// ActivityRepository stores the append-only log of account and relationship events.
type ActivityRepository struct {
	collection *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{
		collection: db.Collection(ActivitiesCollection),
	}
}

// CreateActivity appends an entry and assigns its id.
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}
	result, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"userID":      activity.UserID.Hex(),
			"action_type": activity.Type,
		}).WithError(err).Error("Failed to insert activity")
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		activity.ID = id
	}
	return nil
}

// ActivityQuery narrows an activity listing. Zero values mean no restriction,
// except Limit which must be positive.
type ActivityQuery struct {
	Types  []string
	Before time.Time
	Limit  int
}

func (q ActivityQuery) filter(userID primitive.ObjectID) bson.M {
	filter := bson.M{"user_id": userID}
	if len(q.Types) > 0 {
		filter["type"] = bson.M{"$in": q.Types}
	}
	if !q.Before.IsZero() {
		filter["timestamp"] = bson.M{"$lt": q.Before}
	}
	return filter
}

// GetUserActivities pages through one account's activity log, newest first.
// Pass the oldest timestamp of a page as Before to fetch the next one.
func (r *ActivityRepository) GetUserActivities(ctx context.Context, userID primitive.ObjectID, q ActivityQuery) ([]models.Activity, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(q.Limit))

	cursor, err := r.collection.Find(ctx, q.filter(userID), opts)
	if err != nil {
		logrus.WithField("userID", userID.Hex()).WithError(err).Error("Failed to query activities")
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	defer cursor.Close(ctx)

	activities := []models.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	return activities, nil
}
