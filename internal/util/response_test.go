package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: title is required", ErrValidation), http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: not the owner", ErrForbidden), http.StatusForbidden},
		{NotFoundOr(gorm.ErrRecordNotFound), http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidState, http.StatusUnprocessableEntity},
		{ErrUpstreamUnavailable, http.StatusBadGateway},
		{errors.New("boom"), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "quiz is not published", publicMessage(fmt.Errorf("%w: quiz is not published", ErrInvalidState)))
	assert.Equal(t, "forbidden", publicMessage(ErrForbidden))
}
