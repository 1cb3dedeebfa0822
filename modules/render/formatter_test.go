package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cine-prompt-server/modules/common/model"
)

func sampleData() *model.GeneratedData {
	return &model.GeneratedData{
		Shot:         "2x2 Grid Storyboard Layout",
		SubjectIntro: "Role 1 and Role 2 at a train platform",
		Shots: []model.ShotEntry{
			{ID: 1, Title: "[Shot 1 Role 1 waits]", Content: "Camera Rig: tripod\nComposition: wide", ShortContent: "Role 1   waits,\n\tsteam rising"},
			{ID: 2, Title: "[Shot 2 Role 2 arrives]", Content: "Camera Rig: handheld\nComposition: medium", ShortContent: ""},
		},
		GlobalParams: model.GlobalParams{
			Theme: "melancholy", Environment: "1940s station", Lighting: "overcast",
			ArtistStyle: "Wong Kar-wai", Camera: "Cooke S4 50mm", ColorGrade: "desaturated green",
		},
	}
}

func TestGrid(t *testing.T) {
	data := sampleData()
	got := Grid(data, data.GlobalParams)

	want := `"shot": "2x2 Grid Storyboard Layout",
"subject": "Role 1 and Role 2 at a train platform",
"shots": [
[Shot 1 Role 1 waits]
Camera Rig: tripod
Composition: wide

[Shot 2 Role 2 arrives]
Camera Rig: handheld
Composition: medium
],
"Theme": "melancholy",
"Environment": "1940s station",
"Lighting Studio": "overcast",
"Camera": "Cooke S4 50mm",
"Color Grade": "desaturated green",
"Artist": "Wong Kar-wai"`
	assert.Equal(t, want, got)
}

func TestSplit(t *testing.T) {
	data := sampleData()
	got := Split(data.Shots[0], data.GlobalParams)

	want := `=== SHOT 1: [Shot 1 Role 1 waits] ===
Camera Rig: tripod
Composition: wide

-- Style Parameters --
Theme: melancholy
Environment: 1940s station
Lighting: overcast
Camera: Cooke S4 50mm
Color Grade: desaturated green
Artist/Style: Wong Kar-wai`
	assert.Equal(t, want, got)
}

func TestShort(t *testing.T) {
	data := sampleData()

	t.Run("collapsed single line", func(t *testing.T) {
		got, ok := Short(data.Shots[0], data.GlobalParams)
		require.True(t, ok)
		assert.Equal(t, "[Shot 1 Role 1 waits] :: Role 1 waits, steam rising :: Theme: melancholy, 1940s station :: Lighting: overcast :: Cam: Cooke S4 50mm, desaturated green, Wong Kar-wai", got)
		assert.NotContains(t, got, "\n")
		assert.NotContains(t, got, "  ")
	})

	t.Run("missing shortContent is unavailable, not empty", func(t *testing.T) {
		got, ok := Short(data.Shots[1], data.GlobalParams)
		assert.False(t, ok)
		assert.Equal(t, ShortUnavailable, got)
	})

	t.Run("newlines in params are collapsed too", func(t *testing.T) {
		params := data.GlobalParams
		params.Lighting = "hard\n\nkey"
		got, _ := Short(data.Shots[0], params)
		assert.NotContains(t, got, "\n")
		assert.Contains(t, got, "Lighting: hard key")
	})
}

func TestRenderings_Deterministic(t *testing.T) {
	data := sampleData()
	p := data.GlobalParams

	assert.Equal(t, Grid(data, p), Grid(data, p))
	assert.Equal(t, Split(data.Shots[0], p), Split(data.Shots[0], p))
	a, _ := Short(data.Shots[0], p)
	b, _ := Short(data.Shots[0], p)
	assert.Equal(t, a, b)
	assert.Equal(t, Storyboard(data, p), Storyboard(data, p))
}

func TestRenderings_ParamEditPropagates(t *testing.T) {
	data := sampleData()
	before := data.GlobalParams
	after := before
	after.Camera = "Arri Alexa 65"

	grid := Grid(data, after)
	split := Split(data.Shots[0], after)
	short, _ := Short(data.Shots[0], after)

	for _, text := range []string{grid, split, short} {
		assert.NotContains(t, text, before.Camera)
		assert.Contains(t, text, "Arri Alexa 65")
	}

	// shot text is untouched
	for _, s := range data.Shots {
		assert.Contains(t, grid, s.Title)
		assert.Contains(t, grid, s.Content)
	}
	assert.Contains(t, split, data.Shots[0].Content)
	assert.True(t, strings.HasPrefix(short, data.Shots[0].Title))
	assert.Equal(t, "Cooke S4 50mm", data.GlobalParams.Camera)
}

func TestStoryboard(t *testing.T) {
	data := sampleData()
	data.Shots[0].ShortContent = strings.Repeat("x", ShortTargetChars+10)

	view := Storyboard(data, data.GlobalParams)

	require.Len(t, view.Shots, 2)
	assert.True(t, view.Shots[0].ShortAvailable)
	assert.True(t, view.Shots[0].OverTarget)
	assert.Greater(t, view.Shots[0].ShortChars, ShortTargetChars)
	assert.Contains(t, view.Shots[0].Short, strings.Repeat("x", ShortTargetChars+10))

	assert.False(t, view.Shots[1].ShortAvailable)
	assert.Zero(t, view.Shots[1].ShortChars)
	assert.Equal(t, ShortUnavailable, view.Shots[1].Short)
}

func TestTransitions(t *testing.T) {
	result := &model.TransitionResult{
		Analysis: "rain-soaked noir",
		Transitions: []model.TransitionSpan{
			{FromShotIndex: 1, ToShotIndex: 2, TransitionPrompts: []model.TransitionPrompt{
				{Order: 1, Content: "fist pulls back"}, {Order: 2, Content: "fist mid-air"},
			}},
			{FromShotIndex: 3, ToShotIndex: 5, TransitionPrompts: []model.TransitionPrompt{
				{Order: 1, Content: "door swings"},
			}},
		},
	}

	view := Transitions(result, 2)

	assert.Equal(t, "rain-soaked noir", view.Analysis)
	require.Len(t, view.Spans, 2)
	assert.Equal(t, "SHOT 1 → 2 Transition(s) → SHOT 2", view.Spans[0].Header)
	assert.True(t, view.Spans[0].Adjacent)
	assert.Equal(t, "SHOT 1 → 2 Transition(s) → SHOT 2\n[1] fist pulls back\n[2] fist mid-air", view.Spans[0].Text)

	assert.False(t, view.Spans[1].Adjacent)
	assert.Equal(t, 5, view.Spans[1].To)
	assert.Equal(t, "door swings", view.Spans[1].Prompts[0].Content)
}
