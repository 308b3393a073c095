package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/internal/models"
	"github.com/Dias221467/social-network/internal/repository"
	"github.com/Dias221467/social-network/internal/services"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountService is what UserHandler needs from the credential engine.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, in services.ProfileUpdate) (models.PublicUser, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (models.PublicUser, error)
}

// ActivityReader lists an account's recent activity.
type ActivityReader interface {
	GetRecentActivities(ctx context.Context, userID primitive.ObjectID, q repository.ActivityQuery) ([]models.Activity, error)
}

// UserHandler handles HTTP requests related to user operations.
type UserHandler struct {
	Service    AccountService
	Activities ActivityReader
}

// NewUserHandler creates a new instance of UserHandler.
func NewUserHandler(service AccountService, activities ActivityReader) *UserHandler {
	return &UserHandler{
		Service:    service,
		Activities: activities,
	}
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// registerResponse is returned on 201 and, when the code could not be mailed,
// alongside the delivery error.
type registerResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	User    models.PublicUser `json:"user"`
}

// RegisterUserHandler handles user registration.
func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		log.WithError(err).Warn("Failed to decode user registration request")
		writeError(w, err)
		return
	}

	created, err := h.Service.Register(r.Context(), in)
	if err != nil && created == nil {
		log.WithError(err).Warn("Failed to register user")
		writeError(w, err)
		return
	}

	resp := registerResponse{
		Message: "Registered, check your email for the verification code",
		User:    created.Public(),
	}
	status := http.StatusCreated
	if err != nil {
		appErr := apperror.As(err)
		resp.Message = appErr.Message
		resp.Code = string(appErr.Kind)
		status = appErr.Kind.HTTPStatus()
	}
	writeJSON(w, status, resp)
}

// SendOTPHandler issues a fresh verification code.
func (h *UserHandler) SendOTPHandler(w http.ResponseWriter, r *http.Request) {
	var in otpRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Service.SendOTP(r.Context(), in.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Verification code sent"})
}

// VerifyOTPHandler confirms an account with its verification code.
func (h *UserHandler) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var in otpRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Service.VerifyOTP(r.Context(), in.Email, in.OTP); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Account verified"})
}

// GetUserHandler returns the public profile of any account.
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(r); !ok {
		unauthorized(w)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUserHandler applies a partial profile edit to the caller's own account.
func (h *UserHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownAccount(w, r)
	if !ok {
		return
	}

	var in services.ProfileUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.Service.UpdateProfile(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePasswordHandler replaces the caller's password.
func (h *UserHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownAccount(w, r)
	if !ok {
		return
	}

	var in changePasswordRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), id, in.OldPassword, in.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password changed"})
}

// GetActivitiesHandler lists the caller's recent activity. ?limit= caps the
// result, repeated ?type= filters it and ?before= (RFC 3339) pages back.
func (h *UserHandler) GetActivitiesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownAccount(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	q := repository.ActivityQuery{Types: query["type"]}
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, apperror.Validation("limit", "limit must be a number"))
			return
		}
		q.Limit = n
	}
	if raw := query.Get("before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, apperror.Validation("before", "before must be an RFC 3339 timestamp"))
			return
		}
		q.Before = before
	}

	activities, err := h.Activities.GetRecentActivities(r.Context(), id, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// ownAccount resolves the {id} path variable and checks that it is the caller.
func (h *UserHandler) ownAccount(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	userID, ok := currentUserID(r)
	if !ok {
		unauthorized(w)
		return primitive.NilObjectID, false
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return primitive.NilObjectID, false
	}
	if id != userID {
		log.WithFields(log.Fields{
			"requestedUserID": id.Hex(),
			"loggedInUserID":  userID.Hex(),
		}).Warn("Forbidden access attempt")
		writeJSON(w, http.StatusForbidden, errorResponse{
			Message: "you can only change your own account",
			Code:    "FORBIDDEN",
		})
		return primitive.NilObjectID, false
	}
	return id, true
}
