package handlers

import (
	"context"
	"net/http"

	"github.com/Dias221467/social-network/internal/models"
	"github.com/Dias221467/social-network/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FriendGraph is what FriendHandler needs from the friendship service.
type FriendGraph interface {
	SendFriendRequest(ctx context.Context, senderID, receiverID primitive.ObjectID) (string, error)
	CancelFriendRequest(ctx context.Context, senderID, receiverID primitive.ObjectID) (string, error)
	AcceptFriendRequest(ctx context.Context, userID, friendID primitive.ObjectID) (string, error)
	RemoveFriend(ctx context.Context, userID, friendID primitive.ObjectID) (string, error)
	DeleteReceivedFriendRequest(ctx context.Context, userID, senderID primitive.ObjectID) (string, error)
	GetFriends(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error)
	GetPendingRequests(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error)
	GetSentRequests(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error)
}

// FriendHandler manages HTTP endpoints related to friend requests.
type FriendHandler struct {
	Service FriendGraph
}

// NewFriendHandler initializes a new FriendHandler.
func NewFriendHandler(service FriendGraph) *FriendHandler {
	return &FriendHandler{Service: service}
}

type pairAction func(ctx context.Context, self, other primitive.ObjectID) (string, error)

// pair runs an operation between the caller and the account in the path.
func (h *FriendHandler) pair(action string, op pairAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(r)
		if !ok {
			logger.Get().Warnf("Unauthorized attempt to %s", action)
			unauthorized(w)
			return
		}
		otherID, err := pathID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		msg, err := op(r.Context(), userID, otherID)
		if err != nil {
			logger.Get().Warnf("Failed to %s: %v", action, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}

type listAction func(ctx context.Context, userID primitive.ObjectID) ([]models.PublicUser, error)

func (h *FriendHandler) list(op listAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(r)
		if !ok {
			unauthorized(w)
			return
		}

		users, err := op(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// SendFriendRequestHandler sends a friend request to the user in the path.
func (h *FriendHandler) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.pair("send friend request", h.Service.SendFriendRequest)(w, r)
}

// CancelFriendRequestHandler withdraws the caller's request to the user in the path.
func (h *FriendHandler) CancelFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.pair("cancel friend request", h.Service.CancelFriendRequest)(w, r)
}

// AcceptFriendRequestHandler accepts the request the user in the path sent.
func (h *FriendHandler) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.pair("accept friend request", h.Service.AcceptFriendRequest)(w, r)
}

// DeleteReceivedFriendRequestHandler declines the request the user in the path sent.
func (h *FriendHandler) DeleteReceivedFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.pair("delete friend request", h.Service.DeleteReceivedFriendRequest)(w, r)
}

// RemoveFriendHandler ends the friendship with the user in the path.
func (h *FriendHandler) RemoveFriendHandler(w http.ResponseWriter, r *http.Request) {
	h.pair("remove friend", h.Service.RemoveFriend)(w, r)
}

// GetFriendsHandler lists the caller's friends.
func (h *FriendHandler) GetFriendsHandler(w http.ResponseWriter, r *http.Request) {
	h.list(h.Service.GetFriends)(w, r)
}

// GetPendingRequestsHandler shows all incoming friend requests.
func (h *FriendHandler) GetPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	h.list(h.Service.GetPendingRequests)(w, r)
}

// GetSentRequestsHandler shows all outgoing friend requests.
func (h *FriendHandler) GetSentRequestsHandler(w http.ResponseWriter, r *http.Request) {
	h.list(h.Service.GetSentRequests)(w, r)
}
