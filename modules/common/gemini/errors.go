package gemini

import (
	"context"
	"errors"
	"net"
	"net/http"

	"google.golang.org/genai"

	"cine-prompt-server/modules/common/apperror"
)

// Classify - maps an SDK/transport failure to a typed error, once, at the call site
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.New(apperror.KindUpstreamTimeout, "Request to AI service timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperror.New(apperror.KindUpstreamTimeout, "Request to AI service timed out", err)
	}

	if apiErr, ok := asAPIError(err); ok {
		return apperror.New(kindForAPIError(apiErr), messageForAPIError(apiErr), err)
	}

	return apperror.New(apperror.KindUnknownUpstream, "Failed to generate content", err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func kindForAPIError(apiErr genai.APIError) apperror.Kind {
	switch apiErr.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return apperror.KindUpstreamAuth
	case "RESOURCE_EXHAUSTED":
		return apperror.KindUpstreamQuota
	case "DEADLINE_EXCEEDED":
		return apperror.KindUpstreamTimeout
	}

	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperror.KindUpstreamAuth
	case http.StatusTooManyRequests:
		return apperror.KindUpstreamQuota
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return apperror.KindUpstreamTimeout
	case http.StatusBadRequest:
		// invalid keys come back as 400 with an API_KEY_INVALID reason
		if hasReason(apiErr, "API_KEY_INVALID") {
			return apperror.KindUpstreamAuth
		}
	}
	return apperror.KindUnknownUpstream
}

func hasReason(apiErr genai.APIError, reason string) bool {
	for _, detail := range apiErr.Details {
		if r, ok := detail["reason"].(string); ok && r == reason {
			return true
		}
	}
	return false
}

func messageForAPIError(apiErr genai.APIError) string {
	switch kindForAPIError(apiErr) {
	case apperror.KindUpstreamAuth:
		return "Invalid API key configuration"
	case apperror.KindUpstreamQuota:
		return "API quota exceeded, please try again later"
	case apperror.KindUpstreamTimeout:
		return "Request to AI service timed out"
	default:
		return "Failed to generate content"
	}
}
