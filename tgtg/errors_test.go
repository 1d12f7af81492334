package tgtg

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoginError(t *testing.T) {
	t.Run("message falls back to status text", func(t *testing.T) {
		err := &LoginError{StatusCode: 500}
		assert.Equal(t, "tgtg login error: status 500: Internal Server Error", err.Error())
	})

	t.Run("unwraps cause", func(t *testing.T) {
		err := fmt.Errorf("login: %w", &LoginError{StatusCode: 200, Message: "terms", Err: ErrEmailNotRegistered})
		assert.ErrorIs(t, err, ErrEmailNotRegistered)

		var loginErr *LoginError
		assert.True(t, errors.As(err, &loginErr))
		assert.Equal(t, 200, loginErr.StatusCode)
	})
}

func TestPollingTimeoutError(t *testing.T) {
	err := &PollingTimeoutError{Attempts: 24, Waited: 2 * time.Minute}
	assert.Equal(t, "max retries (24 attempts, 2m0s) reached, try again", err.Error())
}

func TestTimeoutError(t *testing.T) {
	cause := errors.New("context deadline exceeded")
	err := fmt.Errorf("wrapped: %w", &TimeoutError{Path: "item/v8", Timeout: time.Second, Err: cause})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "POST item/v8: no response within 1s")
}
