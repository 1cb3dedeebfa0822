package storyboard

import (
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"

	"cine-prompt-server/modules/common/gemini"
	"cine-prompt-server/modules/common/model"
	"cine-prompt-server/modules/common/utils"
)

// Temperature - creative variety while keeping the JSON shape reliable
const Temperature float32 = 0.7

const imageAnalysisPrompt = "Analyze this reference image. Extract characters (Role 1, Role 2...), scene details, lighting, and mood."

const SystemInstruction = `You are an expert Film Director and AI Prompt Engineer specialized in creating professional storyboards for advertising, anime, and film.
Your goal is to generate structured prompts for an AI Image Generator (like Midjourney or Stable Diffusion) based on user input.

You must output a JSON object strictly adhering to the schema provided.

The user will provide either a text description or an image.
If an image is provided:
1. Analyze the image deeply.
2. Identify distinct characters (Label them Character 1, Character 2, etc.).
3. Analyze the lighting, color palette, and composition.
4. Use this analysis as the basis for the prompt generation.

The output must have two main utilities:
1. A "Grid Prompt" mode (all shots in one image).
2. A "Split Prompt" mode (individual descriptions for each shot).

The content must follow this specific styling:
- Professional film terminology (Camera Rig, Composition, Lighting Studio, Color Grade).
- Concise, high-density descriptive keywords.
- For the "shots" array, each shot content must include:
  - [Shot N Role Action]: Title
  - Camera Rig: ...
  - Composition: ...
  - Character: ... (Appearance, Action/Pose, Clothing)

Also, for each shot, provide a "shortContent" field. This should be a condensed version of the shot description (max 400 characters) that retains the most critical visual triggers (Subject, Action, Key Lighting/Camera) but removes filler words. This is for users who need shorter prompts.

Ensure the "globalParams" object extracts the common style elements (Theme, Environment, Lighting, Artist, Camera, Color) so they can be appended to individual shots later.`

// ResponseSchema - every field the formatter reads is required
func ResponseSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"shot":         str("Description of the grid layout (e.g., '3x3 Grid StoryboardLayout...')"),
			"subjectIntro": str("Overall scene introduction and character definitions."),
			"shots": {
				Type:        genai.TypeArray,
				Description: "List of individual shot details",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":           {Type: genai.TypeInteger},
						"title":        str("e.g., '[Shot 1 Role 1 meets Role 2]'"),
						"content":      str("The detailed prompt block for this specific shot (Camera, Comp, Char)."),
						"shortContent": str("Condensed version of the prompt (< 400 chars)."),
					},
					Required: []string{"id", "title", "content", "shortContent"},
				},
			},
			"globalParams": {
				Type:        genai.TypeObject,
				Description: "Global stylistic parameters",
				Properties: map[string]*genai.Schema{
					"theme":       {Type: genai.TypeString},
					"environment": {Type: genai.TypeString},
					"lighting":    {Type: genai.TypeString},
					"artistStyle": {Type: genai.TypeString},
					"camera":      {Type: genai.TypeString},
					"colorGrade":  {Type: genai.TypeString},
				},
				Required: []string{"theme", "environment", "lighting", "artistStyle", "camera", "colorGrade"},
			},
		},
		Required: []string{"shot", "subjectIntro", "shots", "globalParams"},
	}
}

// GridSide - side of the square-ish layout requested for count shots
func GridSide(count int) int {
	if count <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(float64(count))))
}

// BuildRequest - pure; same inputs give the same request
func BuildRequest(modelName string, cfg model.UserConfig, image *utils.InlineImage, seed *model.GlobalParams) gemini.Request {
	parts := make([]gemini.Part, 0, 3)
	if image != nil {
		parts = append(parts, image.Part(), gemini.Part{Text: imageAnalysisPrompt})
	}
	parts = append(parts, gemini.Part{Text: buildPromptText(cfg, seed)})

	return gemini.Request{
		Model:             modelName,
		SystemInstruction: SystemInstruction,
		ResponseSchema:    ResponseSchema(),
		Contents:          parts,
		GenerationConfig:  gemini.GenerationConfig{Temperature: Temperature},
	}
}

func buildPromptText(cfg model.UserConfig, seed *model.GlobalParams) string {
	side := GridSide(cfg.ShotCount)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Create a %d-shot storyboard script.\n", cfg.ShotCount))
	b.WriteString(fmt.Sprintf("Aspect Ratio: %s.\n\n", cfg.AspectRatio))
	b.WriteString(fmt.Sprintf("Context/Description: %s\n", cfg.MainDescription))
	b.WriteString(fmt.Sprintf("Additional Notes: %s\n\n", cfg.AdditionalNotes))
	b.WriteString(fmt.Sprintf("Structure the 'shot' field to describe a %dx%d grid (or appropriate layout for %d shots).\n",
		side, side, cfg.ShotCount))

	if seed != nil {
		b.WriteString("\nRefine the generation using these existing style parameters (do not change them unless necessary for the new context):\n")
		b.WriteString(fmt.Sprintf("Theme: %s\n", seed.Theme))
		b.WriteString(fmt.Sprintf("Environment: %s\n", seed.Environment))
		b.WriteString(fmt.Sprintf("Lighting: %s\n", seed.Lighting))
		b.WriteString(fmt.Sprintf("Camera: %s\n", seed.Camera))
		b.WriteString(fmt.Sprintf("Color Grade: %s\n", seed.ColorGrade))
		b.WriteString(fmt.Sprintf("Artist/Style: %s\n", seed.ArtistStyle))
	}

	return b.String()
}
