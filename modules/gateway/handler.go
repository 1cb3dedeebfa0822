package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/config"
	"cine-prompt-server/modules/common/cors"
	"cine-prompt-server/modules/common/metrics"
	"cine-prompt-server/modules/common/response"
)

type Handler struct {
	service      *Service
	cors         *cors.Policy
	validate     *validator.Validate
	defaultModel string
	credential   func() bool
	development  bool
}

func NewHandler(cfg *config.Config, service *Service, policy *cors.Policy) *Handler {
	return &Handler{
		service:      service,
		cors:         policy,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		defaultModel: cfg.GatewayDefaultModel,
		credential:   cfg.HasCredential,
		development:  cfg.IsDevelopment(),
	}
}

// rawRequest - fields are checked for type before use
type rawRequest struct {
	Prompt    any `json:"prompt"`
	ModelName any `json:"modelName"`
}

// HandleGenerate - POST /generate, OPTIONS /generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	h.cors.Apply(w, r, "POST, OPTIONS", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		h.write(w, http.StatusMethodNotAllowed, response.ErrorBody{
			Error:   "Method not allowed",
			Message: "Only POST requests are accepted",
		})
		return
	}

	if !h.credential() {
		log.Ctx(r.Context()).Error().Msg("[Gateway] GEMINI_API_KEY is not set")
		h.write(w, http.StatusInternalServerError, response.ErrorBody{
			Error:   "Configuration error",
			Message: "API key not configured on server",
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	req, err := h.decode(r)
	if err != nil {
		h.write(w, http.StatusBadRequest, response.ErrorBody{
			Error:   "Invalid request",
			Message: apperror.MessageOf(err),
		})
		return
	}

	text, err := h.service.Generate(r.Context(), req.ModelName, req.Prompt)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("model", req.ModelName).Msg("[Gateway] generation failed")
		h.writeUpstreamError(w, err)
		return
	}

	h.write(w, http.StatusOK, GenerateResponse{
		Success:   true,
		Text:      text,
		Model:     req.ModelName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) decode(r *http.Request) (*GenerateRequest, error) {
	var raw rawRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.Validation("Prompt exceeds maximum length of %d characters", MaxPromptChars)
		}
		return nil, apperror.Validation("Request body must be valid JSON")
	}

	prompt, ok := raw.Prompt.(string)
	if !ok || prompt == "" {
		return nil, apperror.Validation("Prompt is required and must be a string")
	}

	req := &GenerateRequest{Prompt: prompt, ModelName: h.defaultModel}
	switch name := raw.ModelName.(type) {
	case nil:
	case string:
		if name != "" {
			req.ModelName = name
		}
	default:
		return nil, apperror.Validation("modelName must be a string")
	}

	if err := h.validate.Struct(req); err != nil {
		return nil, apperror.Validation("Prompt exceeds maximum length of %d characters", MaxPromptChars)
	}
	return req, nil
}

// writeUpstreamError - four response classes; anything unrecognised is a 500
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	switch apperror.KindOf(err) {
	case apperror.KindUpstreamTimeout:
		h.write(w, http.StatusGatewayTimeout, response.ErrorBody{
			Error:   "Gateway timeout",
			Message: "Request to AI service timed out",
		})
	case apperror.KindUpstreamAuth:
		h.write(w, http.StatusUnauthorized, response.ErrorBody{
			Error:   "Authentication error",
			Message: "Invalid API key configuration",
		})
	case apperror.KindUpstreamQuota:
		h.write(w, http.StatusTooManyRequests, response.ErrorBody{
			Error:   "Rate limit exceeded",
			Message: "API quota exceeded, please try again later",
		})
	default:
		body := response.ErrorBody{
			Error:   "Internal server error",
			Message: "Failed to generate content",
		}
		if h.development {
			body.Details = fmt.Sprint(err)
		}
		h.write(w, http.StatusInternalServerError, body)
	}
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	metrics.RecordGatewayResponse(status)
	response.JSON(w, status, v)
}
