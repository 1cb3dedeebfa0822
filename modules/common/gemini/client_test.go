package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"cine-prompt-server/modules/common/apperror"
)

type fakeModels struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	calls               int
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	return f.GenerateContentFunc(ctx, model, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestClient_Generate_MissingCredential(t *testing.T) {
	c := &Client{}

	_, err := c.Generate(context.Background(), Request{Model: "m"})
	assert.Equal(t, apperror.KindConfiguration, apperror.KindOf(err))

	_, err = c.GenerateText(context.Background(), "m", "hi")
	assert.Equal(t, apperror.KindConfiguration, apperror.KindOf(err))
}

func TestClient_Generate_BuildsSDKRequest(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	var gotModel string
	var gotContents []*genai.Content
	var gotConfig *genai.GenerateContentConfig

	fake := &fakeModels{GenerateContentFunc: func(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotModel, gotContents, gotConfig = model, contents, config
		return textResponse(`{"ok":true}`), nil
	}}
	c := &Client{models: fake}

	schema := &genai.Schema{Type: genai.TypeObject}
	text, err := c.Generate(context.Background(), Request{
		Model:             "gemini-3-flash-preview",
		SystemInstruction: "be a director",
		ResponseSchema:    schema,
		Contents: []Part{
			{InlineData: &InlineData{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(raw)}},
			{Text: "describe"},
		},
		GenerationConfig: GenerationConfig{Temperature: 0.7},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, "gemini-3-flash-preview", gotModel)
	require.Len(t, gotContents, 1)
	require.Len(t, gotContents[0].Parts, 2)
	assert.Equal(t, raw, gotContents[0].Parts[0].InlineData.Data)
	assert.Equal(t, "image/png", gotContents[0].Parts[0].InlineData.MIMEType)
	assert.Equal(t, "describe", gotContents[0].Parts[1].Text)

	assert.Equal(t, "application/json", gotConfig.ResponseMIMEType)
	assert.Same(t, schema, gotConfig.ResponseSchema)
	assert.Equal(t, "be a director", gotConfig.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gotConfig.Temperature)
	assert.InDelta(t, 0.7, *gotConfig.Temperature, 0.0001)
}

func TestClient_Generate_InvalidBase64(t *testing.T) {
	fake := &fakeModels{}
	c := &Client{models: fake}

	_, err := c.Generate(context.Background(), Request{
		Contents: []Part{{InlineData: &InlineData{MimeType: "image/png", Data: "%%%"}}},
	})
	assert.Equal(t, apperror.KindEncoding, apperror.KindOf(err))
	assert.Zero(t, fake.calls)
}

func TestClient_Generate_EmptyText(t *testing.T) {
	fake := &fakeModels{GenerateContentFunc: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}, nil
	}}
	c := &Client{models: fake}

	_, err := c.GenerateText(context.Background(), "m", "hi")
	assert.Equal(t, apperror.KindEmptyResponse, apperror.KindOf(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperror.Kind
	}{
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), apperror.KindUpstreamTimeout},
		{"quota status", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, apperror.KindUpstreamQuota},
		{"unauthenticated", genai.APIError{Code: 401, Status: "UNAUTHENTICATED"}, apperror.KindUpstreamAuth},
		{"invalid key", genai.APIError{
			Code:    400,
			Status:  "INVALID_ARGUMENT",
			Details: []map[string]any{{"reason": "API_KEY_INVALID"}},
		}, apperror.KindUpstreamAuth},
		{"bad request", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}, apperror.KindUnknownUpstream},
		{"gateway timeout", genai.APIError{Code: 504}, apperror.KindUpstreamTimeout},
		{"already typed", apperror.EmptyResponse(), apperror.KindEmptyResponse},
		{"opaque", errors.New("quota exceeded for API key timeout"), apperror.KindUnknownUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperror.KindOf(Classify(tt.err)))
		})
	}
}

func TestClient_CallErrorIsClassified(t *testing.T) {
	fake := &fakeModels{GenerateContentFunc: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}
	}}
	c := &Client{models: fake}

	_, err := c.GenerateText(context.Background(), "m", "hi")
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstreamQuota, apperror.KindOf(err))
	assert.Equal(t, 1, fake.calls)
}
