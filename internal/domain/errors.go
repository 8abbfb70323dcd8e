package domain

import (
	"errors"
	"fmt"
)

// Categorias de error. Los errores concretos envuelven una categoria con %w para que
// errors.Is funcione tanto contra la categoria como contra el error concreto.
var (
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCursor       = errors.New("invalid cursor")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

var (
	ErrUsernameTaken   = fmt.Errorf("%w: username taken", ErrConflict)
	ErrEmailTaken      = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidUsername = fmt.Errorf("%w: username must be 3-30 characters of letters, digits or underscore", ErrInvalidInput)
	ErrInvalidEmail    = fmt.Errorf("%w: invalid email", ErrInvalidInput)
	ErrWeakPassword    = fmt.Errorf("%w: password too short", ErrInvalidInput)
	ErrSelfFollow      = fmt.Errorf("%w: cannot follow self", ErrInvalidInput)

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrRateLimited        = errors.New("rate limited")
)

// InvalidInputf construye un error de validacion con detalle.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Unavailable envuelve un fallo de infraestructura como ErrUpstreamUnavailable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
