package sandbox

import (
	"errors"
	"net/http"

	"github.com/h2market/h2trade/internal/core/domain"
)

var (
	ErrUsernameTaken   = errors.New("username already exists")
	ErrEmailTaken      = errors.New("email already exists")
	ErrBadCredentials  = errors.New("bad username/email or password")
	ErrUserNotFound    = errors.New("user not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrInvalidListing  = errors.New("invalid listing")
)

// reject builds the error the API renders as {"msg": msg} with status.
func reject(status int, msg string, reason error) *domain.Error {
	kind := domain.KindUnknown
	switch status {
	case http.StatusBadRequest:
		kind = domain.KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = domain.KindUnauthorized
	case http.StatusNotFound:
		kind = domain.KindNotFound
	}
	return &domain.Error{Kind: kind, Message: msg, StatusCode: status, Err: reason}
}
