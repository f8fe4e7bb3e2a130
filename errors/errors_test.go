package errors_test

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/nrtkbb/fsrecon/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "config_error",
			code:    errors.ErrConfig,
			message: "canonical root does not exist",
			wantStr: "[CONFIG] canonical root does not exist",
		},
		{
			name:    "read_error",
			code:    errors.ErrRead,
			message: "cannot hash file",
			wantStr: "[READ] cannot hash file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)
			assert.Equal(t, tt.code, err.Code)
			assert.NotNil(t, err.Details)
			assert.Equal(t, tt.wantStr, err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil_error_stays_nil", func(t *testing.T) {
		assert.Nil(t, errors.Wrap(nil, errors.ErrRead, "ignored"))
		assert.Nil(t, errors.Wrapf(nil, errors.ErrRead, "ignored %d", 1))
	})

	t.Run("wrapped_error_is_reachable", func(t *testing.T) {
		err := errors.Wrapf(fs.ErrPermission, errors.ErrFSMutation, "remove %s", "a.txt")
		require.NotNil(t, err)
		assert.Equal(t, "[FS_MUTATION] remove a.txt: permission denied", err.Error())
		assert.True(t, stderrors.Is(err, fs.ErrPermission))
	})

	t.Run("code_survives_fmt_wrapping", func(t *testing.T) {
		inner := errors.New(errors.ErrConfig, "bad root")
		outer := fmt.Errorf("startup: %w", inner)
		assert.True(t, errors.IsErrorCode(outer, errors.ErrConfig))
		assert.Equal(t, errors.ErrConfig, errors.GetErrorCode(outer))
		assert.True(t, stderrors.Is(outer, errors.New(errors.ErrConfig, "other message")))
		assert.False(t, stderrors.Is(outer, errors.New(errors.ErrRead, "")))
	})
}

func TestGetErrorCodeUnknown(t *testing.T) {
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(stderrors.New("plain")))
	assert.Nil(t, errors.GetErrorDetails(stderrors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrRead, "cannot open").WithDetail("path", "/tmp/x")
	assert.Equal(t, "/tmp/x", errors.GetErrorDetails(err)["path"])
}
