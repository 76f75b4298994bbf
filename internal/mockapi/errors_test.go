package mockapi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeRoundTrip(t *testing.T) {
	for _, e := range errorCodes {
		wrapped := fmt.Errorf("op: %w", e.err)
		code := ErrorCode(wrapped)
		assert.Equal(t, e.code, code)
		assert.ErrorIs(t, ErrorFromCode(code), e.err)
	}
}

func TestErrorCodeUnknown(t *testing.T) {
	assert.Empty(t, ErrorCode(errors.New("boom")))
	assert.Nil(t, ErrorFromCode("NOPE"))
}
