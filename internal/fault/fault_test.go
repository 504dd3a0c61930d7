package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_NilError(t *testing.T) {
	assert.NoError(t, Wrap(CodeUploadFailed, nil))
}

func TestWrap_KeepsExistingCode(t *testing.T) {
	inner := Errorf(CodeInvalidMedia, "unreadable container")
	wrapped := Wrap(CodeTranscodeFailed, fmt.Errorf("transcode: %w", inner))

	assert.Equal(t, CodeInvalidMedia, CodeOf(wrapped))
	assert.False(t, Retryable(wrapped))
}

func TestCodeOf_UnclassifiedIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{CodeSourceUnavailable, true},
		{CodeTranscodeFailed, true},
		{CodeUploadFailed, true},
		{CodeInvalidMedia, false},
		{CodeInvalidClipBounds, false},
		{CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := Wrap(tt.code, errors.New("stage failed"))
			assert.Equal(t, tt.want, Retryable(err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	sentinel := errors.New("connection reset")
	err := Wrap(CodeSourceUnavailable, sentinel)

	require.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "SourceUnavailable")
	assert.Contains(t, err.Error(), "connection reset")
}
