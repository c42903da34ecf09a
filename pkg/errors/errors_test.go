package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsAppErrorUnwrapsWrappedChain(t *testing.T) {
	inner := New(CodeVectorDBError, "vector search")
	wrapped := fmt.Errorf("retrieval stage: %w", inner)

	got := AsAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, CodeVectorDBError, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
}

func TestAsAppErrorFallsBackToUnknown(t *testing.T) {
	got := AsAppError(fmt.Errorf("plain failure"))
	require.NotNil(t, got)
	assert.Equal(t, CodeUnknown, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
}

func TestCodeToHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, New(CodeNotFound, "x").HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, New(CodeTooManyRequests, "x").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, New(CodeEmbeddingFailed, "x").HTTPStatus)
}

func TestWrapKeepsCauseInChain(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(cause, CodeEmbeddingFailed, "embed query")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "embed query")
}
