package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"cine-prompt-server/modules/common/model"
)

// ShortTargetChars - advisory length asked of the model for shortContent
const ShortTargetChars = 400

// ShortUnavailable - shown instead of an empty short prompt
const ShortUnavailable = "Short content not available. Please regenerate."

// Grid - whole storyboard as one prompt: shot, subject, shots, then style fields
func Grid(data *model.GeneratedData, params model.GlobalParams) string {
	blocks := make([]string, 0, len(data.Shots))
	for _, s := range data.Shots {
		blocks = append(blocks, s.Title+"\n"+s.Content)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("\"shot\": \"%s\",\n", data.Shot))
	b.WriteString(fmt.Sprintf("\"subject\": \"%s\",\n", data.SubjectIntro))
	b.WriteString("\"shots\": [\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n],\n")
	b.WriteString(fmt.Sprintf("\"Theme\": \"%s\",\n", params.Theme))
	b.WriteString(fmt.Sprintf("\"Environment\": \"%s\",\n", params.Environment))
	b.WriteString(fmt.Sprintf("\"Lighting Studio\": \"%s\",\n", params.Lighting))
	b.WriteString(fmt.Sprintf("\"Camera\": \"%s\",\n", params.Camera))
	b.WriteString(fmt.Sprintf("\"Color Grade\": \"%s\",\n", params.ColorGrade))
	b.WriteString(fmt.Sprintf("\"Artist\": \"%s\"", params.ArtistStyle))
	return strings.TrimSpace(b.String())
}

// Split - one self-contained prompt for a single shot
func Split(shot model.ShotEntry, params model.GlobalParams) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("=== SHOT %d: %s ===\n", shot.ID, shot.Title))
	b.WriteString(shot.Content)
	b.WriteString("\n\n-- Style Parameters --\n")
	b.WriteString(fmt.Sprintf("Theme: %s\n", params.Theme))
	b.WriteString(fmt.Sprintf("Environment: %s\n", params.Environment))
	b.WriteString(fmt.Sprintf("Lighting: %s\n", params.Lighting))
	b.WriteString(fmt.Sprintf("Camera: %s\n", params.Camera))
	b.WriteString(fmt.Sprintf("Color Grade: %s\n", params.ColorGrade))
	b.WriteString(fmt.Sprintf("Artist/Style: %s", params.ArtistStyle))
	return strings.TrimSpace(b.String())
}

// Short - single line condensed prompt; ok is false when the shot has no shortContent
func Short(shot model.ShotEntry, params model.GlobalParams) (text string, ok bool) {
	if strings.TrimSpace(shot.ShortContent) == "" {
		return ShortUnavailable, false
	}
	line := fmt.Sprintf("%s :: %s :: Theme: %s, %s :: Lighting: %s :: Cam: %s, %s, %s",
		shot.Title, shot.ShortContent,
		params.Theme, params.Environment,
		params.Lighting,
		params.Camera, params.ColorGrade, params.ArtistStyle)
	return collapseWhitespace(line), true
}

// collapseWhitespace - strings.Fields splits on every unicode space run, newlines included
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ShotView - every rendering of one shot
type ShotView struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Split          string `json:"split"`
	Short          string `json:"short"`
	ShortAvailable bool   `json:"shortAvailable"`
	ShortChars     int    `json:"shortChars"`
	OverTarget     bool   `json:"overTarget"`
}

// StoryboardView - grid plus per shot renderings
type StoryboardView struct {
	Grid  string     `json:"grid"`
	Shots []ShotView `json:"shots"`
}

// Storyboard - all renderings from the held data and the currently edited params
func Storyboard(data *model.GeneratedData, params model.GlobalParams) StoryboardView {
	view := StoryboardView{
		Grid:  Grid(data, params),
		Shots: make([]ShotView, 0, len(data.Shots)),
	}
	for _, s := range data.Shots {
		short, ok := Short(s, params)
		sv := ShotView{
			ID:             s.ID,
			Title:          s.Title,
			Split:          Split(s, params),
			Short:          short,
			ShortAvailable: ok,
		}
		if ok {
			sv.ShortChars = utf8.RuneCountInString(short)
			sv.OverTarget = sv.ShortChars > ShortTargetChars
		}
		view.Shots = append(view.Shots, sv)
	}
	return view
}

type PromptView struct {
	Order   int    `json:"order"`
	Label   string `json:"label"`
	Content string `json:"content"`
}

type SpanView struct {
	Header   string       `json:"header"`
	From     int          `json:"from"`
	To       int          `json:"to"`
	Adjacent bool         `json:"adjacent"`
	Prompts  []PromptView `json:"prompts"`
	Text     string       `json:"text"`
}

type TransitionsView struct {
	Analysis string     `json:"analysis"`
	Spans    []SpanView `json:"spans"`
}

// Transitions - spans in model order, prompts labeled with their order
// Spans are shown as-is even when they are not adjacent.
func Transitions(result *model.TransitionResult, count int) TransitionsView {
	view := TransitionsView{
		Analysis: result.Analysis,
		Spans:    make([]SpanView, 0, len(result.Transitions)),
	}
	for _, span := range result.Transitions {
		sv := SpanView{
			Header:   fmt.Sprintf("SHOT %d → %d Transition(s) → SHOT %d", span.FromShotIndex, count, span.ToShotIndex),
			From:     span.FromShotIndex,
			To:       span.ToShotIndex,
			Adjacent: span.Adjacent(),
			Prompts:  make([]PromptView, 0, len(span.TransitionPrompts)),
		}
		lines := []string{sv.Header}
		for _, p := range span.TransitionPrompts {
			label := fmt.Sprintf("[%d]", p.Order)
			sv.Prompts = append(sv.Prompts, PromptView{Order: p.Order, Label: label, Content: p.Content})
			lines = append(lines, label+" "+p.Content)
		}
		sv.Text = strings.Join(lines, "\n")
		view.Spans = append(view.Spans, sv)
	}
	return view
}
