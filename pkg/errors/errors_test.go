package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeInternal:      http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, MetadataFor(code).HTTPStatus, string(code))
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("nope")).HTTPStatus)
}

func TestAsFindsWrappedError(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := fmt.Errorf("saving order: %w", Wrap(CodeInternal, cause, "persist failed"))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeInternal, typed.Code())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCodeOfUntypedError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "order not found")))
}
