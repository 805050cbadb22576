package boterr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"empty content", EmptyContent("message must not be empty", 200), ErrEmptyContent},
		{"content type", ContentType("unsupported message type", 400), ErrContentType},
		{"url", URL("bad url", 400), ErrURL},
		{"incompatibility", Incompatibility("channel cannot send audio", 500), ErrIncompatibility},
		{"bind command", BindCommand("callback missing", 100), ErrBindCommand},
		{"runtime", Runtime(io.EOF), ErrRuntime},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.sentinel)
			for _, other := range []error{ErrEmptyContent, ErrContentType, ErrURL, ErrIncompatibility, ErrBindCommand, ErrRuntime} {
				if other == tc.sentinel {
					continue
				}
				assert.NotErrorIs(t, tc.err, other)
			}
		})
	}
}

func TestErrorMessageCarriesCode(t *testing.T) {
	err := EmptyContent("message must not be empty", 200)
	assert.Equal(t, "error code 200: message must not be empty", err.Error())
}

func TestWrapPassesTaxonomyThrough(t *testing.T) {
	orig := Incompatibility("channel cannot send video", 500)
	wrapped := fmt.Errorf("send: %w", orig)

	assert.Same(t, orig, Wrap(orig))
	assert.Equal(t, wrapped, Wrap(wrapped))
	assert.Equal(t, KindIncompatibility, KindOf(wrapped))
}

func TestWrapConvertsForeignErrors(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := Wrap(cause)

	require.ErrorIs(t, err, ErrRuntime)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Equal(t, KindRuntime, KindOf(err))
	assert.NoError(t, Wrap(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "bind_command", KindBindCommand.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
