package model

// Aspect ratios offered by the config panel
const (
	AspectWide16x9     = "16:9"
	AspectCinema239x1  = "2.39:1"
	AspectPortrait9x16 = "9:16"
	AspectSquare1x1    = "1:1"
	AspectClassic4x3   = "4:3"
)

// ShotCounts - allowed storyboard sizes
var ShotCounts = []int{3, 4, 6, 9, 16, 20}

// AspectRatios - allowed frame ratios
var AspectRatios = []string{AspectWide16x9, AspectCinema239x1, AspectPortrait9x16, AspectSquare1x1, AspectClassic4x3}

// UserConfig - storyboard request settings from the config panel
type UserConfig struct {
	ShotCount       int    `json:"shotCount" validate:"oneof=3 4 6 9 16 20"`
	AspectRatio     string `json:"aspectRatio" validate:"oneof=16:9 2.39:1 9:16 1:1 4:3"`
	MainDescription string `json:"mainDescription"`
	AdditionalNotes string `json:"additionalNotes"`
}

// GlobalParams - style baseline shared by every shot
type GlobalParams struct {
	Theme       string `json:"theme" validate:"required"`
	Environment string `json:"environment" validate:"required"`
	Lighting    string `json:"lighting" validate:"required"`
	ArtistStyle string `json:"artistStyle" validate:"required"`
	Camera      string `json:"camera" validate:"required"`
	ColorGrade  string `json:"colorGrade" validate:"required"`
}

// GlobalParamsPatch - nil fields are left as they are
type GlobalParamsPatch struct {
	Theme       *string `json:"theme,omitempty"`
	Environment *string `json:"environment,omitempty"`
	Lighting    *string `json:"lighting,omitempty"`
	ArtistStyle *string `json:"artistStyle,omitempty"`
	Camera      *string `json:"camera,omitempty"`
	ColorGrade  *string `json:"colorGrade,omitempty"`
}

// Apply - returns a copy of p with the patch applied
func (patch GlobalParamsPatch) Apply(p GlobalParams) GlobalParams {
	if patch.Theme != nil {
		p.Theme = *patch.Theme
	}
	if patch.Environment != nil {
		p.Environment = *patch.Environment
	}
	if patch.Lighting != nil {
		p.Lighting = *patch.Lighting
	}
	if patch.ArtistStyle != nil {
		p.ArtistStyle = *patch.ArtistStyle
	}
	if patch.Camera != nil {
		p.Camera = *patch.Camera
	}
	if patch.ColorGrade != nil {
		p.ColorGrade = *patch.ColorGrade
	}
	return p
}

// IsEmpty - true when no field is set
func (patch GlobalParamsPatch) IsEmpty() bool {
	return patch.Theme == nil && patch.Environment == nil && patch.Lighting == nil &&
		patch.ArtistStyle == nil && patch.Camera == nil && patch.ColorGrade == nil
}

// ShotEntry - one panel of the storyboard
type ShotEntry struct {
	ID           int    `json:"id" validate:"gt=0"`
	Title        string `json:"title" validate:"required"`
	Content      string `json:"content" validate:"required"`
	ShortContent string `json:"shortContent"` // may be empty, rendered as unavailable
}

// GeneratedData - structured storyboard returned by the model
type GeneratedData struct {
	Shot         string       `json:"shot" validate:"required"`
	SubjectIntro string       `json:"subjectIntro" validate:"required"`
	Shots        []ShotEntry  `json:"shots" validate:"required,min=1,dive"`
	GlobalParams GlobalParams `json:"globalParams"`
}

// TransitionConfig - transition page settings
type TransitionConfig struct {
	TransitionCount int    `json:"transitionCount" validate:"oneof=1 2 3"`
	AdditionalNotes string `json:"additionalNotes"`
}

type TransitionPrompt struct {
	Order   int    `json:"order" validate:"gt=0"`
	Content string `json:"content" validate:"required"`
}

// TransitionSpan - generated frames between two existing shots
type TransitionSpan struct {
	FromShotIndex     int                `json:"fromShotIndex" validate:"gt=0"`
	ToShotIndex       int                `json:"toShotIndex" validate:"gt=0"`
	TransitionPrompts []TransitionPrompt `json:"transitionPrompts" validate:"required,min=1,dive"`
}

// Adjacent - toShotIndex follows fromShotIndex directly
func (s TransitionSpan) Adjacent() bool {
	return s.ToShotIndex == s.FromShotIndex+1
}

// TransitionResult - structured transition output returned by the model
type TransitionResult struct {
	Analysis    string           `json:"analysis" validate:"required"`
	Transitions []TransitionSpan `json:"transitions" validate:"required,dive"`
}
