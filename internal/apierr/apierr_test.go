package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawcontext/engram-sub001/internal/validator"
)

func TestAppError_Status(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(CodeValidation, "bad", nil).Status())
	assert.Equal(t, http.StatusTooManyRequests, New(CodeRateLimitExceeded, "slow down", nil).Status())
}

func TestFromInternal_ReadOnlyViolation(t *testing.T) {
	err := &validator.ReadOnlyViolation{Keyword: "DELETE"}
	app := FromInternal(err)
	assert.Equal(t, CodeValidation, app.Code)
	assert.Equal(t, http.StatusBadRequest, app.Status())
}

func TestFromInternal_UnknownSymbol(t *testing.T) {
	err := &validator.UnknownSymbol{Name: "Memroy", Suggestions: []string{"Memory"}}
	app := FromInternal(err)
	assert.Equal(t, CodeValidation, app.Code)
}

func TestFromInternal_PassesThroughAppError(t *testing.T) {
	original := New(CodeConflict, "duplicate", nil)
	assert.Same(t, original, FromInternal(original))
}

func TestFromInternal_GenericError(t *testing.T) {
	app := FromInternal(errors.New("boom"))
	assert.Equal(t, CodeInternal, app.Code)
	assert.Equal(t, http.StatusInternalServerError, app.Status())
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := errors.New("root cause")
	app := Wrap(CodeInternal, "generic", cause)
	assert.ErrorIs(t, app, cause)
	assert.NotContains(t, app.Message, "root cause")
}
