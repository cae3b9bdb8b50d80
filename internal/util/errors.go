package util

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidState        = errors.New("invalid state")
	ErrConflict            = errors.New("conflict")
	ErrValidation          = errors.New("validation error")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// NotFoundOr maps gorm.ErrRecordNotFound to ErrNotFound and returns any other error unchanged.
func NotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
