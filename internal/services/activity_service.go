package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/internal/models"
	"github.com/Dias221467/social-network/internal/repository"
	"github.com/Dias221467/social-network/pkg/validation"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

type ActivityService struct {
	repo ActivityStore
	now  func() time.Time
}

func NewActivityService(repo ActivityStore) *ActivityService {
	return &ActivityService{repo: repo, now: time.Now}
}

// LogActivity logs a user activity. Callers treat a failure as non-fatal.
func (s *ActivityService) LogActivity(
	ctx context.Context,
	userID primitive.ObjectID,
	actionType string,
	targetID primitive.ObjectID,
	message string,
) error {
	activity := &models.Activity{
		UserID:    userID,
		Type:      actionType,
		TargetID:  targetID,
		Message:   message,
		Timestamp: s.now(),
	}

	err := s.repo.CreateActivity(ctx, activity)
	if err != nil {
		logrus.WithError(err).WithField("userID", userID.Hex()).Error("Failed to log activity")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"userID":      userID.Hex(),
		"action_type": actionType,
	}).Debug("Activity logged")

	return nil
}

// GetRecentActivities returns a page of the user's actions, newest first.
// The limit defaults to 20 and is capped at 100; unknown types are rejected.
func (s *ActivityService) GetRecentActivities(ctx context.Context, userID primitive.ObjectID, q repository.ActivityQuery) ([]models.Activity, error) {
	if q.Limit <= 0 {
		q.Limit = defaultActivityLimit
	}
	if q.Limit > maxActivityLimit {
		q.Limit = maxActivityLimit
	}
	for _, t := range q.Types {
		if !validation.OneOf(t, models.ActivityTypes) {
			return nil, apperror.Validation("type", fmt.Sprintf("unknown activity type %q", t))
		}
	}

	activities, err := s.repo.GetUserActivities(ctx, userID, q)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindStore, "failed to load activities", err)
	}
	return activities, nil
}
