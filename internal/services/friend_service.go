package services

import (
	"context"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Confirmation messages returned by successful relationship operations.
const (
	MsgFriendRequestSent      = "Friend request sent"
	MsgFriendRequestCancelled = "Friend request cancelled"
	MsgFriendRequestAccepted  = "Friend request accepted"
	MsgFriendRemoved          = "Friend removed"
	MsgFriendRequestDeleted   = "Friend request deleted"
)

// FriendService maintains the two-sided friendship graph. Each operation
// reads both account documents, edits their lists in memory and writes them
// back one after the other. When the second write fails the first document's
// lists are restored.
type FriendService struct {
	store    UserStore
	locker   PairLocker
	activity ActivityLogger
}

// NewFriendService creates a new FriendService. locker and activity may be nil;
// without a locker concurrent operations on the same pair can lose updates.
func NewFriendService(store UserStore, locker PairLocker, activity ActivityLogger) *FriendService {
	return &FriendService{
		store:    store,
		locker:   locker,
		activity: activity,
	}
}

// edgeSnapshot is one account's side of the graph.
type edgeSnapshot struct {
	friends  []primitive.ObjectID
	sent     []primitive.ObjectID
	received []primitive.ObjectID
}

func snapshot(u *models.User) edgeSnapshot {
	return edgeSnapshot{
		friends:  append([]primitive.ObjectID{}, u.Friends...),
		sent:     append([]primitive.ObjectID{}, u.FriendRequestsSent...),
		received: append([]primitive.ObjectID{}, u.FriendRequestsReceived...),
	}
}

func (e edgeSnapshot) fields() map[string]interface{} {
	return map[string]interface{}{
		"friends":                e.friends,
		"friendRequestsSent":     e.sent,
		"friendRequestsReceived": e.received,
		"friends_count":          len(e.friends),
	}
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func addID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// pairMutation edits both sides in memory and reports whether anything changed.
type pairMutation func(first, second *models.User) (bool, error)

func (s *FriendService) mutatePair(ctx context.Context, firstID, secondID primitive.ObjectID, mutate pairMutation) error {
	if firstID == secondID {
		return apperror.Validation("id", "cannot perform this action on yourself")
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, firstID, secondID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"userID":   firstID.Hex(),
				"friendID": secondID.Hex(),
			}).Warn("Could not lock relationship pair")
			return apperror.Wrap(apperror.KindConflict, "another operation on this relationship is in progress", err)
		}
		defer unlock()
	}

	first, err := s.store.GetUserByID(ctx, firstID)
	if err != nil {
		return storeError(err, "failed to load user")
	}
	second, err := s.store.GetUserByID(ctx, secondID)
	if err != nil {
		return storeError(err, "failed to load user")
	}

	before := snapshot(first)
	changed, err := mutate(first, second)
	if err != nil || !changed {
		return err
	}
	first.FriendsCount = len(first.Friends)
	second.FriendsCount = len(second.Friends)

	if err := s.store.UpdateUser(ctx, first.ID, snapshot(first).fields()); err != nil {
		return storeError(err, "failed to update relationship")
	}
	if err := s.store.UpdateUser(ctx, second.ID, snapshot(second).fields()); err != nil {
		log := logrus.WithFields(logrus.Fields{
			"userID":   first.ID.Hex(),
			"friendID": second.ID.Hex(),
		})
		log.WithError(err).Error("Second relationship write failed, restoring first document")
		if cerr := s.store.UpdateUser(ctx, first.ID, before.fields()); cerr != nil {
			log.WithError(cerr).Error("Compensating relationship write failed")
		}
		return storeError(err, "failed to update relationship")
	}
	return nil
}

// SendFriendRequest records a pending request from sender to receiver.
func (s *FriendService) SendFriendRequest(ctx context.Context, senderID, receiverID primitive.ObjectID) (string, error) {
	err := s.mutatePair(ctx, senderID, receiverID, func(sender, receiver *models.User) (bool, error) {
		if containsID(receiver.FriendRequestsReceived, sender.ID) || containsID(sender.FriendRequestsSent, receiver.ID) {
			return false, apperror.New(apperror.KindAlreadyRequested, "friend request already sent")
		}
		if containsID(sender.Friends, receiver.ID) || containsID(receiver.Friends, sender.ID) {
			return false, apperror.New(apperror.KindConflict, "already friends")
		}
		if containsID(sender.FriendRequestsReceived, receiver.ID) {
			return false, apperror.New(apperror.KindConflict, "this user has already sent you a friend request")
		}
		sender.FriendRequestsSent = addID(sender.FriendRequestsSent, receiver.ID)
		receiver.FriendRequestsReceived = addID(receiver.FriendRequestsReceived, sender.ID)
		return true, nil
	})
	if err != nil {
		return "", err
	}

	s.logActivity(ctx, senderID, models.ActivityFriendRequestSent, receiverID, MsgFriendRequestSent)
	logrus.WithFields(logrus.Fields{
		"senderID":   senderID.Hex(),
		"receiverID": receiverID.Hex(),
	}).Info("Friend request sent")
	return MsgFriendRequestSent, nil
}

// CancelFriendRequest withdraws a pending request. Cancelling an absent request succeeds.
func (s *FriendService) CancelFriendRequest(ctx context.Context, senderID, receiverID primitive.ObjectID) (string, error) {
	var changed bool
	err := s.mutatePair(ctx, senderID, receiverID, func(sender, receiver *models.User) (bool, error) {
		changed = containsID(sender.FriendRequestsSent, receiver.ID) || containsID(receiver.FriendRequestsReceived, sender.ID)
		sender.FriendRequestsSent = removeID(sender.FriendRequestsSent, receiver.ID)
		receiver.FriendRequestsReceived = removeID(receiver.FriendRequestsReceived, sender.ID)
		return changed, nil
	})
	if err != nil {
		return "", err
	}

	if changed {
		s.logActivity(ctx, senderID, models.ActivityFriendRequestCancelled, receiverID, MsgFriendRequestCancelled)
	}
	return MsgFriendRequestCancelled, nil
}

// AcceptFriendRequest turns the request friend sent to user into a friendship.
func (s *FriendService) AcceptFriendRequest(ctx context.Context, userID, friendID primitive.ObjectID) (string, error) {
	err := s.mutatePair(ctx, userID, friendID, func(user, friend *models.User) (bool, error) {
		if !containsID(user.FriendRequestsReceived, friend.ID) {
			return false, apperror.New(apperror.KindNoPendingRequest, "no pending friend request from this user")
		}
		user.Friends = addID(user.Friends, friend.ID)
		friend.Friends = addID(friend.Friends, user.ID)
		user.FriendRequestsReceived = removeID(user.FriendRequestsReceived, friend.ID)
		friend.FriendRequestsSent = removeID(friend.FriendRequestsSent, user.ID)
		return true, nil
	})
	if err != nil {
		return "", err
	}

	s.logActivity(ctx, userID, models.ActivityFriendRequestAccepted, friendID, MsgFriendRequestAccepted)
	logrus.WithFields(logrus.Fields{
		"userID":   userID.Hex(),
		"friendID": friendID.Hex(),
	}).Info("Friend request accepted")
	return MsgFriendRequestAccepted, nil
}

// RemoveFriend ends a friendship. Both friends_count values are recomputed
// from the lists, so they never go negative.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID primitive.ObjectID) (string, error) {
	err := s.mutatePair(ctx, userID, friendID, func(user, friend *models.User) (bool, error) {
		if !containsID(user.Friends, friend.ID) && !containsID(friend.Friends, user.ID) {
			return false, apperror.New(apperror.KindNotFriends, "you are not friends with this user")
		}
		user.Friends = removeID(user.Friends, friend.ID)
		friend.Friends = removeID(friend.Friends, user.ID)
		return true, nil
	})
	if err != nil {
		return "", err
	}

	s.logActivity(ctx, userID, models.ActivityFriendRemoved, friendID, MsgFriendRemoved)
	logrus.WithFields(logrus.Fields{
		"userID":   userID.Hex(),
		"friendID": friendID.Hex(),
	}).Info("Friend removed")
	return MsgFriendRemoved, nil
}

// DeleteReceivedFriendRequest declines the request sender sent to user. Deleting
// an absent request succeeds.
func (s *FriendService) DeleteReceivedFriendRequest(ctx context.Context, userID, senderID primitive.ObjectID) (string, error) {
	var changed bool
	err := s.mutatePair(ctx, userID, senderID, func(user, sender *models.User) (bool, error) {
		changed = containsID(user.FriendRequestsReceived, sender.ID) || containsID(sender.FriendRequestsSent, user.ID)
		user.FriendRequestsReceived = removeID(user.FriendRequestsReceived, sender.ID)
		sender.FriendRequestsSent = removeID(sender.FriendRequestsSent, user.ID)
		return changed, nil
	})
	if err != nil {
		return "", err
	}

	if changed {
		s.logActivity(ctx, userID, models.ActivityFriendRequestDeleted, senderID, MsgFriendRequestDeleted)
	}
	return MsgFriendRequestDeleted, nil
}

// GetFriends returns the public profiles of the user's friends.
func (s *FriendService) GetFriends(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error) {
	return s.listProfiles(ctx, userID, func(u *models.User) []primitive.ObjectID { return u.Friends })
}

// GetPendingRequests returns the accounts that sent the user a request.
func (s *FriendService) GetPendingRequests(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error) {
	return s.listProfiles(ctx, userID, func(u *models.User) []primitive.ObjectID { return u.FriendRequestsReceived })
}

// GetSentRequests returns the accounts the user sent a request to.
func (s *FriendService) GetSentRequests(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error) {
	return s.listProfiles(ctx, userID, func(u *models.User) []primitive.ObjectID { return u.FriendRequestsSent })
}

func (s *FriendService) listProfiles(ctx context.Context, userID primitive.ObjectID, list func(*models.User) []primitive.ObjectID) ([]models.PublicUser, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "failed to load user")
	}

	ids := list(user)
	if len(ids) == 0 {
		return []models.PublicUser{}, nil
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(err, "failed to load users")
	}

	profiles := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Public())
	}
	return profiles, nil
}

func (s *FriendService) logActivity(ctx context.Context, userID primitive.ObjectID, actionType string, targetID primitive.ObjectID, message string) {
	if s.activity == nil {
		return
	}
	_ = s.activity.LogActivity(ctx, userID, actionType, targetID, message)
}
