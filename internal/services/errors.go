package services

import (
	"errors"

	"github.com/Dias221467/social-network/internal/apperror"
	"github.com/Dias221467/social-network/internal/repository"
)

// storeError classifies an error returned by the UserStore.
func storeError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apperror.New(apperror.KindNotFound, "user not found")
	case errors.Is(err, repository.ErrDuplicateKey):
		return apperror.Wrap(apperror.KindConflict, "email or phone number already in use", err)
	default:
		return apperror.Wrap(apperror.KindStore, message, err)
	}
}
