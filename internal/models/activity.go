package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActivityFriendRequestSent      = "friend_request_sent"
	ActivityFriendRequestCancelled = "friend_request_cancelled"
	ActivityFriendRequestAccepted  = "friend_request_accepted"
	ActivityFriendRequestDeleted   = "friend_request_deleted"
	ActivityFriendRemoved          = "friend_removed"
	ActivityAccountLocked          = "account_locked"
	ActivityAccountVerified        = "account_verified"
)

// ActivityTypes lists every recorded activity type.
var ActivityTypes = []string{
	ActivityFriendRequestSent,
	ActivityFriendRequestCancelled,
	ActivityFriendRequestAccepted,
	ActivityFriendRequestDeleted,
	ActivityFriendRemoved,
	ActivityAccountLocked,
	ActivityAccountVerified,
}

type Activity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      string             `bson:"type" json:"type"`           // e.g. "friend_request_sent", "account_locked"
	TargetID  primitive.ObjectID `bson:"target_id" json:"target_id"` // the other account, or the account itself
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Message   string             `bson:"message" json:"message"`
}
