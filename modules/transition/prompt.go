package transition

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/gemini"
	"cine-prompt-server/modules/common/model"
	"cine-prompt-server/modules/common/utils"
)

// Temperature - visual consistency matters more than novelty here
const Temperature float32 = 0.6

const SystemInstruction = `You are an expert Film Editor and Continuity Director.
Your task is to analyze a provided storyboard image containing multiple shots (e.g., a 3x3 grid).
You must identify the sequential order of shots in the grid (reading left-to-right, top-to-bottom).
Then, you must generate "Transition Prompts" that fit logically BETWEEN these existing shots to create a smooth animation or narrative flow.

1. Analyze the visual style, characters, and environment of the uploaded storyboard.
2. For each gap between Shot N and Shot N+1, generate the requested number of intermediate transition prompts.
3. The transition prompts must strictly adhere to the visual style (lighting, color, aspect ratio) of the analyzed storyboard.
4. The content of the transition must logically bridge the action. For example, if Shot 1 is a punch start and Shot 2 is a hit, the transition should be the fist mid-air.

Output a JSON object.`

func ResponseSchema() *genai.Schema {
	prompt := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"order":   {Type: genai.TypeInteger, Description: "1, 2, or 3 depending on sequence"},
			"content": {Type: genai.TypeString, Description: "The full cinematic prompt for this intermediate frame."},
		},
		Required: []string{"order", "content"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"analysis": {
				Type:        genai.TypeString,
				Description: "Brief analysis of the storyboard style, character, and setting found in the image.",
			},
			"transitions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"fromShotIndex":     {Type: genai.TypeInteger, Description: "The index of the preceding shot (1-based)."},
						"toShotIndex":       {Type: genai.TypeInteger, Description: "The index of the following shot (1-based)."},
						"transitionPrompts": {Type: genai.TypeArray, Items: prompt},
					},
					Required: []string{"fromShotIndex", "toShotIndex", "transitionPrompts"},
				},
			},
		},
		Required: []string{"analysis", "transitions"},
	}
}

// BuildRequest - the storyboard image is mandatory, there is no text-only mode
func BuildRequest(modelName string, cfg model.TransitionConfig, image *utils.InlineImage) (gemini.Request, error) {
	if image == nil {
		return gemini.Request{}, apperror.Validation("a storyboard image is required to generate transitions")
	}

	var b strings.Builder
	b.WriteString("This image is a storyboard grid.\n")
	b.WriteString("1. Identify the separate panels/shots in reading order (left-to-right, top-to-bottom).\n")
	b.WriteString("2. Generate transition prompts between each consecutive panel to bridge the motion/narrative.\n\n")
	b.WriteString(fmt.Sprintf("Number of transition frames to generate between each shot: %d.\n\n", cfg.TransitionCount))
	b.WriteString(fmt.Sprintf("Additional Context/Instructions from user: %s\n\n", cfg.AdditionalNotes))
	b.WriteString("Ensure strict consistency with the style found in the image.")

	return gemini.Request{
		Model:             modelName,
		SystemInstruction: SystemInstruction,
		ResponseSchema:    ResponseSchema(),
		Contents:          []gemini.Part{image.Part(), {Text: b.String()}},
		GenerationConfig:  gemini.GenerationConfig{Temperature: Temperature},
	}, nil
}
