package transition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/gemini"
	"cine-prompt-server/modules/common/model"
	"cine-prompt-server/modules/common/utils"
)

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, req gemini.Request) (string, error)
	calls        int
}

func (m *mockGenerator) Generate(ctx context.Context, req gemini.Request) (string, error) {
	m.calls++
	return m.GenerateFunc(ctx, req)
}

var storyboardImage = &utils.InlineImage{MimeType: "image/jpeg", Data: "/9j/4AAQ"}

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest("m", model.TransitionConfig{TransitionCount: 2}, storyboardImage)
	require.NoError(t, err)

	inline := 0
	for _, p := range req.Contents {
		if p.InlineData != nil {
			inline++
		}
	}
	assert.Equal(t, 1, inline)

	text := req.Contents[len(req.Contents)-1].Text
	assert.Contains(t, text, "between each shot: 2.")
	assert.Contains(t, text, "left-to-right, top-to-bottom")
	assert.Equal(t, Temperature, req.GenerationConfig.Temperature)
	assert.ElementsMatch(t, []string{"analysis", "transitions"}, req.ResponseSchema.Required)
}

func TestBuildRequest_ImageRequired(t *testing.T) {
	_, err := BuildRequest("m", model.TransitionConfig{TransitionCount: 1}, nil)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestService_Generate(t *testing.T) {
	t.Run("success with non-adjacent span kept as-is", func(t *testing.T) {
		gen := &mockGenerator{GenerateFunc: func(context.Context, gemini.Request) (string, error) {
			return `{"analysis":"noir, rain","transitions":[
				{"fromShotIndex":1,"toShotIndex":2,"transitionPrompts":[{"order":1,"content":"a"},{"order":2,"content":"b"}]},
				{"fromShotIndex":2,"toShotIndex":4,"transitionPrompts":[{"order":1,"content":"c"},{"order":2,"content":"d"}]}
			]}`, nil
		}}
		res, err := NewService(gen, "m", time.Minute).Generate(context.Background(), model.TransitionConfig{TransitionCount: 2}, storyboardImage)
		require.NoError(t, err)
		require.Len(t, res.Transitions, 2)
		assert.Equal(t, 4, res.Transitions[1].ToShotIndex)
	})

	t.Run("missing image never calls the model", func(t *testing.T) {
		gen := &mockGenerator{}
		_, err := NewService(gen, "m", time.Minute).Generate(context.Background(), model.TransitionConfig{TransitionCount: 2}, nil)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		assert.Zero(t, gen.calls)
	})

	t.Run("count outside 1..3", func(t *testing.T) {
		gen := &mockGenerator{}
		_, err := NewService(gen, "m", time.Minute).Generate(context.Background(), model.TransitionConfig{TransitionCount: 0}, storyboardImage)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		assert.Zero(t, gen.calls)
	})

	t.Run("schema violation", func(t *testing.T) {
		gen := &mockGenerator{GenerateFunc: func(context.Context, gemini.Request) (string, error) {
			return `{"transitions":[]}`, nil
		}}
		_, err := NewService(gen, "m", time.Minute).Generate(context.Background(), model.TransitionConfig{TransitionCount: 1}, storyboardImage)
		assert.Equal(t, apperror.KindSchemaViolation, apperror.KindOf(err))
	})

	t.Run("empty response", func(t *testing.T) {
		gen := &mockGenerator{GenerateFunc: func(context.Context, gemini.Request) (string, error) {
			return "", apperror.EmptyResponse()
		}}
		_, err := NewService(gen, "m", time.Minute).Generate(context.Background(), model.TransitionConfig{TransitionCount: 1}, storyboardImage)
		assert.Equal(t, apperror.KindEmptyResponse, apperror.KindOf(err))
	})
}
