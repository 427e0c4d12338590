// Package apperr defines the error kinds shared by storage, services and the
// HTTP layer. Callers wrap a kind with fmt.Errorf("...%w...") and test for it
// with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrConflict marks uniqueness violations and a second project.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument marks caller misuse such as an admin role on the
	// regular user path.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks references to rows that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredential marks a missing or mismatched one-time password.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrExpired marks a matching one-time password past its window.
	ErrExpired = errors.New("expired")
)

// HTTPStatus maps an error to the status code the API reports for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
