package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/pkg/middleware"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Message           string `json:"message"`
	Code              string `json:"code"`
	Field             string `json:"field,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError answers with the status and code of the error's kind.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperror.As(err)
	status := appErr.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	}

	body := errorResponse{
		Message: appErr.Message,
		Code:    string(appErr.Kind),
		Field:   appErr.Field,
	}
	if appErr.Kind == apperror.KindInvalidCredentials {
		remaining := appErr.Remaining
		body.RemainingAttempts = &remaining
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Wrap(apperror.KindValidation, "invalid request payload", err)
	}
	return nil
}

// currentUserID returns the account id from the session claims.
func currentUserID(r *http.Request) (primitive.ObjectID, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Message: "Unauthorized",
		Code:    "UNAUTHORIZED",
	})
}

func pathID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("id", "invalid user ID")
	}
	return id, nil
}
