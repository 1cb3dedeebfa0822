package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/config"
	"cine-prompt-server/modules/common/vertexai"
)

// InlineData - base64 payload with its MIME type, no data URL prefix
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part - exactly one of InlineData or Text is set
type Part struct {
	InlineData *InlineData `json:"inlineData,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type GenerationConfig struct {
	Temperature float32 `json:"temperature"`
}

// Request - one schema constrained model invocation
type Request struct {
	Model             string           `json:"model"`
	SystemInstruction string           `json:"systemInstruction"`
	ResponseSchema    *genai.Schema    `json:"responseSchema,omitempty"`
	Contents          []Part           `json:"contents"`
	GenerationConfig  GenerationConfig `json:"generationConfig"`
}

// Generator - schema constrained call used by the storyboard and transition services
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// TextGenerator - plain prompt call used by the gateway
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// contentGenerator - the part of *genai.Models this package uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client - single call model client; it never retries
type Client struct {
	models contentGenerator
}

// NewClient - a Client without a credential still works; every call returns a configuration error
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.HasCredential() {
		log.Warn().Msg("[Gemini] no credential configured, model calls will fail with a configuration error")
		return &Client{}, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBackend == config.BackendVertex {
		creds, err := vertexai.DetectCredentials(cfg)
		if err != nil {
			return nil, err
		}
		clientConfig = &genai.ClientConfig{
			Backend:     genai.BackendVertexAI,
			Project:     cfg.VertexAIProject,
			Location:    cfg.VertexAILocation,
			Credentials: creds,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	log.Info().Str("backend", cfg.GeminiBackend).Msg("[Gemini] client initialized")
	return &Client{models: client.Models}, nil
}

// Generate - one blocking call, JSON text back when a schema is set
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.models == nil {
		return "", apperror.MissingCredential()
	}

	parts, err := toGenaiParts(req.Contents)
	if err != nil {
		return "", err
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.GenerationConfig.Temperature),
	}
	if req.SystemInstruction != "" {
		genConfig.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.ResponseSchema != nil {
		genConfig.ResponseMIMEType = "application/json"
		genConfig.ResponseSchema = req.ResponseSchema
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	return c.call(ctx, req.Model, contents, genConfig)
}

// GenerateText - plain prompt, default generation settings
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	if c.models == nil {
		return "", apperror.MissingCredential()
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	return c.call(ctx, model, contents, nil)
}

func (c *Client) call(ctx context.Context, model string, contents []*genai.Content, genConfig *genai.GenerateContentConfig) (string, error) {
	resp, err := c.models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		classified := Classify(err)
		log.Error().Err(err).Str("model", model).Str("kind", string(apperror.KindOf(classified))).Msg("[Gemini] call failed")
		return "", classified
	}
	if resp == nil {
		return "", apperror.EmptyResponse()
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		if reason := blockReason(resp); reason != "" {
			log.Warn().Str("model", model).Str("reason", reason).Msg("[Gemini] response blocked")
		}
		return "", apperror.EmptyResponse()
	}
	return text, nil
}

func toGenaiParts(in []Part) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(in))
	for i, p := range in {
		if p.InlineData != nil {
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, apperror.New(apperror.KindEncoding, fmt.Sprintf("part %d is not valid base64", i), err)
			}
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: p.InlineData.MimeType, Data: data}})
			continue
		}
		parts = append(parts, &genai.Part{Text: p.Text})
	}
	return parts, nil
}

func blockReason(resp *genai.GenerateContentResponse) string {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return string(resp.PromptFeedback.BlockReason)
	}
	for _, cand := range resp.Candidates {
		if cand != nil && cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
			return string(cand.FinishReason)
		}
	}
	return ""
}
