package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeConflict, "donation already linked")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches code wrapped by fmt", func(t *testing.T) {
		err := fmt.Errorf("activate: %w", New(CodeInvalidState, "guardianship completed"))
		assert.True(t, HasCode(err, CodeInvalidState))
	})

	t.Run("matches inner coded cause", func(t *testing.T) {
		inner := New(CodeNotFound, "animal not found")
		err := Wrap(inner, CodeInternal, "activation failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeNotFound))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "amount must be positive")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "amount must be positive", MessageOf(New(CodeValidation, "amount must be positive")))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to persist donation")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to persist donation")
}
