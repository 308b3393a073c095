package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/internal/models"
	"github.com/Dias221467/social-network/internal/repository"
	"github.com/Dias221467/social-network/internal/services"
	jwtutil "github.com/Dias221467/social-network/pkg/jwt"
	"github.com/Dias221467/social-network/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	callerID = primitive.NewObjectID()
	otherID  = primitive.NewObjectID()
)

// newRequest builds a request with an optional body, path id and session.
func newRequest(method, target, body, id string, caller *primitive.ObjectID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if id != "" {
		req = mux.SetURLVars(req, map[string]string{"id": id})
	}
	if caller != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), &jwtutil.Claims{UserID: caller.Hex()}))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperror.Validation("email", "invalid email"), http.StatusBadRequest, "VALIDATION"},
		{"not found", apperror.New(apperror.KindNotFound, "user not found"), http.StatusNotFound, "NOT_FOUND"},
		{"locked", apperror.New(apperror.KindAccountLocked, "account is locked"), http.StatusForbidden, "ACCOUNT_LOCKED"},
		{"already requested", apperror.New(apperror.KindAlreadyRequested, "sent"), http.StatusConflict, "ALREADY_REQUESTED"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeBody(t, rec)["code"])
		})
	}

	rec := httptest.NewRecorder()
	writeError(rec, apperror.Validation("email", "invalid email"))
	assert.Equal(t, "email", decodeBody(t, rec)["field"])

	rec = httptest.NewRecorder()
	writeError(rec, apperror.InvalidCredentials(2))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.EqualValues(t, 2, decodeBody(t, rec)["remaining_attempts"])
}

type fakeAccounts struct {
	registerErr error
	created     *models.User
	updated     primitive.ObjectID
	oldPassword string
}

func (f *fakeAccounts) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if f.created == nil {
		return nil, f.registerErr
	}
	return f.created, f.registerErr
}

func (f *fakeAccounts) SendOTP(context.Context, string) error { return nil }

func (f *fakeAccounts) VerifyOTP(_ context.Context, _, code string) error {
	if code != "123456" {
		return apperror.New(apperror.KindInvalidCode, "invalid verification code")
	}
	return nil
}

func (f *fakeAccounts) ChangePassword(_ context.Context, _ primitive.ObjectID, oldPassword, _ string) error {
	f.oldPassword = oldPassword
	return nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id primitive.ObjectID, in services.ProfileUpdate) (models.PublicUser, error) {
	f.updated = id
	return models.PublicUser{ID: id, FullName: *in.FullName}, nil
}

func (f *fakeAccounts) GetUser(_ context.Context, id primitive.ObjectID) (models.PublicUser, error) {
	if id != callerID && id != otherID {
		return models.PublicUser{}, apperror.New(apperror.KindNotFound, "user not found")
	}
	return models.PublicUser{ID: id}, nil
}

type fakeActivities struct{ query repository.ActivityQuery }

func (f *fakeActivities) GetRecentActivities(_ context.Context, userID primitive.ObjectID, q repository.ActivityQuery) ([]models.Activity, error) {
	f.query = q
	return []models.Activity{{UserID: userID, Type: models.ActivityFriendRemoved}}, nil
}

func TestRegisterUserHandler(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "a@x.com"}

	h := NewUserHandler(&fakeAccounts{created: user}, &fakeActivities{})
	rec := httptest.NewRecorder()
	h.RegisterUserHandler(rec, newRequest(http.MethodPost, "/auth/register", `{"email":"a@x.com"}`, "", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, user.ID.Hex(), decodeBody(t, rec)["user"].(map[string]interface{})["id"])

	// delivery failures still report the created account
	h = NewUserHandler(&fakeAccounts{created: user, registerErr: apperror.New(apperror.KindDelivery, "not sent")}, &fakeActivities{})
	rec = httptest.NewRecorder()
	h.RegisterUserHandler(rec, newRequest(http.MethodPost, "/auth/register", `{}`, "", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "DELIVERY", body["code"])
	assert.NotNil(t, body["user"])

	h = NewUserHandler(&fakeAccounts{registerErr: apperror.Validation("phone_number", "invalid phone number")}, &fakeActivities{})
	rec = httptest.NewRecorder()
	h.RegisterUserHandler(rec, newRequest(http.MethodPost, "/auth/register", `{}`, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "phone_number", decodeBody(t, rec)["field"])

	rec = httptest.NewRecorder()
	h.RegisterUserHandler(rec, newRequest(http.MethodPost, "/auth/register", `{not json`, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyOTPHandler(t *testing.T) {
	h := NewUserHandler(&fakeAccounts{}, &fakeActivities{})

	rec := httptest.NewRecorder()
	h.VerifyOTPHandler(rec, newRequest(http.MethodPost, "/auth/verify-otp", `{"email":"a@x.com","otp":"123456"}`, "", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.VerifyOTPHandler(rec, newRequest(http.MethodPost, "/auth/verify-otp", `{"email":"a@x.com","otp":"000000"}`, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CODE", decodeBody(t, rec)["code"])
}

func TestUserHandlerOwnAccountOnly(t *testing.T) {
	accounts := &fakeAccounts{}
	h := NewUserHandler(accounts, &fakeActivities{})

	rec := httptest.NewRecorder()
	h.UpdateUserHandler(rec, newRequest(http.MethodPatch, "/users/x", `{"full_name":"Bob"}`, otherID.Hex(), &callerID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, accounts.updated.IsZero())

	rec = httptest.NewRecorder()
	h.UpdateUserHandler(rec, newRequest(http.MethodPatch, "/users/x", `{"full_name":"Bob"}`, callerID.Hex(), &callerID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, callerID, accounts.updated)
	assert.Equal(t, "Bob", decodeBody(t, rec)["full_name"])

	rec = httptest.NewRecorder()
	h.ChangePasswordHandler(rec, newRequest(http.MethodPut, "/users/x/password", `{"old_password":"old","new_password":"newer1"}`, callerID.Hex(), &callerID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "old", accounts.oldPassword)

	rec = httptest.NewRecorder()
	h.ChangePasswordHandler(rec, newRequest(http.MethodPut, "/users/x/password", `{}`, callerID.Hex(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserHandler(t *testing.T) {
	h := NewUserHandler(&fakeAccounts{}, &fakeActivities{})

	rec := httptest.NewRecorder()
	h.GetUserHandler(rec, newRequest(http.MethodGet, "/users/x", "", otherID.Hex(), &callerID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.GetUserHandler(rec, newRequest(http.MethodGet, "/users/x", "", primitive.NewObjectID().Hex(), &callerID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GetUserHandler(rec, newRequest(http.MethodGet, "/users/x", "", "not-an-id", &callerID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetActivitiesHandler(t *testing.T) {
	activities := &fakeActivities{}
	h := NewUserHandler(&fakeAccounts{}, activities)

	rec := httptest.NewRecorder()
	h.GetActivitiesHandler(rec, newRequest(http.MethodGet,
		"/users/x/activities?limit=5&type=friend_removed&type=account_locked&before=2024-03-01T12:00:00Z",
		"", callerID.Hex(), &callerID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, activities.query.Limit)
	assert.Equal(t, []string{"friend_removed", "account_locked"}, activities.query.Types)
	assert.Equal(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC), activities.query.Before.UTC())

	rec = httptest.NewRecorder()
	h.GetActivitiesHandler(rec, newRequest(http.MethodGet, "/users/x/activities?before=yesterday", "", callerID.Hex(), &callerID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "before", decodeBody(t, rec)["field"])

	rec = httptest.NewRecorder()
	h.GetActivitiesHandler(rec, newRequest(http.MethodGet, "/users/x/activities?limit=many", "", callerID.Hex(), &callerID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeSessions struct {
	loggedOut primitive.ObjectID
}

func (f *fakeSessions) Login(_ context.Context, in services.LoginInput) (*services.Session, error) {
	if in.Password != "secret1" {
		return nil, apperror.InvalidCredentials(3)
	}
	return &services.Session{Token: "token", User: models.PublicUser{ID: callerID}}, nil
}

func (f *fakeSessions) LoginWithOTP(context.Context, string, string) (*services.Session, error) {
	return nil, apperror.New(apperror.KindExpired, "verification code expired")
}

func (f *fakeSessions) Logout(_ context.Context, userID primitive.ObjectID) error {
	f.loggedOut = userID
	return nil
}

func TestAuthHandler(t *testing.T) {
	sessions := &fakeSessions{}
	h := NewAuthHandler(sessions)

	rec := httptest.NewRecorder()
	h.LoginHandler(rec, newRequest(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret1"}`, "", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "token", decodeBody(t, rec)["token"])

	rec = httptest.NewRecorder()
	h.LoginHandler(rec, newRequest(http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"nope"}`, "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.EqualValues(t, 3, decodeBody(t, rec)["remaining_attempts"])

	rec = httptest.NewRecorder()
	h.LoginWithOTPHandler(rec, newRequest(http.MethodPost, "/auth/login-with-otp", `{"email":"a@x.com","otp":"1"}`, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EXPIRED", decodeBody(t, rec)["code"])

	rec = httptest.NewRecorder()
	h.LogoutHandler(rec, newRequest(http.MethodPost, "/auth/logout", "", "", &callerID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, callerID, sessions.loggedOut)
}

type fakeFriends struct {
	pairs [][2]primitive.ObjectID
}

func (f *fakeFriends) record(a, b primitive.ObjectID, msg string) (string, error) {
	if a == b {
		return "", apperror.Validation("id", "cannot perform this action on yourself")
	}
	f.pairs = append(f.pairs, [2]primitive.ObjectID{a, b})
	return msg, nil
}

func (f *fakeFriends) SendFriendRequest(_ context.Context, a, b primitive.ObjectID) (string, error) {
	return f.record(a, b, services.MsgFriendRequestSent)
}

func (f *fakeFriends) CancelFriendRequest(_ context.Context, a, b primitive.ObjectID) (string, error) {
	return f.record(a, b, services.MsgFriendRequestCancelled)
}

func (f *fakeFriends) AcceptFriendRequest(_ context.Context, a, b primitive.ObjectID) (string, error) {
	return "", apperror.New(apperror.KindNoPendingRequest, "no pending friend request from this user")
}

func (f *fakeFriends) RemoveFriend(_ context.Context, a, b primitive.ObjectID) (string, error) {
	return "", apperror.New(apperror.KindNotFriends, "you are not friends with this user")
}

func (f *fakeFriends) DeleteReceivedFriendRequest(_ context.Context, a, b primitive.ObjectID) (string, error) {
	return f.record(a, b, services.MsgFriendRequestDeleted)
}

func (f *fakeFriends) GetFriends(context.Context, primitive.ObjectID) ([]models.PublicUser, error) {
	return []models.PublicUser{{ID: otherID, FullName: "Other"}}, nil
}

func (f *fakeFriends) GetPendingRequests(context.Context, primitive.ObjectID) ([]models.PublicUser, error) {
	return []models.PublicUser{}, nil
}

func (f *fakeFriends) GetSentRequests(context.Context, primitive.ObjectID) ([]models.PublicUser, error) {
	return nil, apperror.New(apperror.KindStore, "failed to load users")
}

func TestFriendHandlerPairActions(t *testing.T) {
	friends := &fakeFriends{}
	h := NewFriendHandler(friends)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		message string
	}{
		{"send", h.SendFriendRequestHandler, http.StatusOK, services.MsgFriendRequestSent},
		{"cancel", h.CancelFriendRequestHandler, http.StatusOK, services.MsgFriendRequestCancelled},
		{"delete received", h.DeleteReceivedFriendRequestHandler, http.StatusOK, services.MsgFriendRequestDeleted},
		{"accept without request", h.AcceptFriendRequestHandler, http.StatusBadRequest, "no pending friend request from this user"},
		{"remove stranger", h.RemoveFriendHandler, http.StatusNotFound, "you are not friends with this user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, newRequest(http.MethodPost, "/friends/x", "", otherID.Hex(), &callerID))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["message"])
		})
	}
	require.Len(t, friends.pairs, 3)
	assert.Equal(t, [2]primitive.ObjectID{callerID, otherID}, friends.pairs[0])

	rec := httptest.NewRecorder()
	h.SendFriendRequestHandler(rec, newRequest(http.MethodPost, "/friends/x/request", "", callerID.Hex(), &callerID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.SendFriendRequestHandler(rec, newRequest(http.MethodPost, "/friends/x/request", "", "zzz", &callerID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.SendFriendRequestHandler(rec, newRequest(http.MethodPost, "/friends/x/request", "", otherID.Hex(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFriendHandlerLists(t *testing.T) {
	h := NewFriendHandler(&fakeFriends{})

	rec := httptest.NewRecorder()
	h.GetFriendsHandler(rec, newRequest(http.MethodGet, "/friends", "", "", &callerID))
	assert.Equal(t, http.StatusOK, rec.Code)
	var friends []models.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &friends))
	require.Len(t, friends, 1)
	assert.Equal(t, otherID, friends[0].ID)

	rec = httptest.NewRecorder()
	h.GetPendingRequestsHandler(rec, newRequest(http.MethodGet, "/friends/requests", "", "", &callerID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = httptest.NewRecorder()
	h.GetSentRequestsHandler(rec, newRequest(http.MethodGet, "/friends/requests/sent", "", "", &callerID))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
