package handlers

import (
	"context"
	"net/http"

	"github.com/Dias221467/social-network/internal/services"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionService is what AuthHandler needs from the authenticator.
type SessionService interface {
	Login(ctx context.Context, in services.LoginInput) (*services.Session, error)
	LoginWithOTP(ctx context.Context, email, code string) (*services.Session, error)
	Logout(ctx context.Context, userID primitive.ObjectID) error
}

// AuthHandler handles login and logout.
type AuthHandler struct {
	Service SessionService
}

// NewAuthHandler creates a new instance of AuthHandler.
func NewAuthHandler(service SessionService) *AuthHandler {
	return &AuthHandler{Service: service}
}

// LoginHandler authenticates with email or phone number and a password.
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.Service.Login(r.Context(), in)
	if err != nil {
		log.WithError(err).Warn("Authentication failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// LoginWithOTPHandler authenticates with a one-time code.
func (h *AuthHandler) LoginWithOTPHandler(w http.ResponseWriter, r *http.Request) {
	var in otpRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.Service.LoginWithOTP(r.Context(), in.Email, in.OTP)
	if err != nil {
		log.WithError(err).Warn("OTP authentication failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// LogoutHandler marks the current account offline.
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		unauthorized(w)
		return
	}

	if err := h.Service.Logout(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}
