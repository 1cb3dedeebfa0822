package response

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
)

// ErrorBody - error payload shared by every JSON endpoint
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("[HTTP] failed to encode response")
	}
}

// Error - status and title from the error kind; details only when exposeDetails is set
func Error(w http.ResponseWriter, err error, exposeDetails bool) int {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)
	body := ErrorBody{
		Error:   Title(kind),
		Message: apperror.MessageOf(err),
		Kind:    string(kind),
	}
	if exposeDetails {
		body.Details = err.Error()
	}
	JSON(w, status, body)
	return status
}

// Title - short human label for a kind
func Title(kind apperror.Kind) string {
	switch kind {
	case apperror.KindConfiguration:
		return "Configuration error"
	case apperror.KindValidation, apperror.KindEncoding:
		return "Invalid request"
	case apperror.KindUpstreamTimeout:
		return "Gateway timeout"
	case apperror.KindUpstreamAuth:
		return "Authentication error"
	case apperror.KindUpstreamQuota:
		return "Rate limit exceeded"
	case apperror.KindEmptyResponse, apperror.KindSchemaViolation:
		return "Bad AI response"
	case apperror.KindConflict:
		return "Generation in progress"
	case apperror.KindNotFound:
		return "Not found"
	default:
		return "Internal server error"
	}
}
