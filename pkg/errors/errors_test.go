package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{0, ErrorTypeNetwork},
		{429, ErrorTypeRateLimit},
		{403, ErrorTypeForbidden},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{404, ErrorTypeUnknown},
		{302, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, FromStatus(tt.code))
		})
	}
}

func TestRetryableAndFatal(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeForbidden))
	assert.True(t, IsRetryable(ErrorTypeParsing))
	assert.False(t, IsRetryable(ErrorTypeIO))
	assert.False(t, IsRetryable(ErrorTypeCheckpoint))

	ioErr := Wrap(ErrorTypeIO, os.ErrPermission, "append batch")
	wrapped := fmt.Errorf("commit: %w", ioErr)

	assert.True(t, IsFatal(wrapped))
	assert.False(t, IsFatal(New(ErrorTypeRateLimit, 429, "slow down")))
	assert.True(t, stderrors.Is(wrapped, os.ErrPermission))
	assert.Equal(t, ErrorTypeIO, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeForbidden, 403, "timeline fetch rejected")
	assert.Equal(t, "forbidden error (code 403): timeline fetch rejected", err.Error())

	err = Wrap(ErrorTypeIO, stderrors.New("disk full"), "append batch")
	assert.Contains(t, err.Error(), "disk full")
}
