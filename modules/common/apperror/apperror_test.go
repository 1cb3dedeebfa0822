package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("wrapped typed error keeps its kind", func(t *testing.T) {
		err := fmt.Errorf("storyboard: %w", New(KindUpstreamQuota, "quota", nil))
		assert.Equal(t, KindUpstreamQuota, KindOf(err))
	})

	t.Run("plain error falls into the unknown bucket", func(t *testing.T) {
		assert.Equal(t, KindUnknownUpstream, KindOf(errors.New("boom")))
	})
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Encoding(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[ENCODING] failed to read image: disk on fire", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindEncoding, http.StatusBadRequest},
		{KindUpstreamAuth, http.StatusUnauthorized},
		{KindUpstreamQuota, http.StatusTooManyRequests},
		{KindUpstreamTimeout, http.StatusGatewayTimeout},
		{KindConfiguration, http.StatusInternalServerError},
		{KindUnknownUpstream, http.StatusInternalServerError},
		{KindSchemaViolation, http.StatusBadGateway},
		{KindConflict, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.kind))
		})
	}
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "API key not configured on server", MessageOf(MissingCredential()))
	assert.Equal(t, "An unexpected error occurred.", MessageOf(errors.New("x")))
}
