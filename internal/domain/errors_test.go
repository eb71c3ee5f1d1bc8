package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", ErrValidation("rating must be between %d and %d", 1, 5), KindValidation},
		{"wrapped not found", errors.Wrap(ErrNotFound("service not found"), "get service"), KindNotFound},
		{"dependency", ErrDependency(errors.New("boom"), "airtable unavailable"), KindDependency},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	err := errors.Wrap(ErrConflict("email already registered"), "signup")
	assert.Equal(t, "email already registered", MessageOf(err))
	assert.Equal(t, "internal error", MessageOf(errors.New("secret detail")))
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrDependency(cause, "airtable request failed")
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "airtable request failed: connection refused", err.Error())
}
