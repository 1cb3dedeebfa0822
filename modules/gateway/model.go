package gateway

// MaxPromptChars - prompts longer than this are rejected before any model call
const MaxPromptChars = 10000

// MaxBodyBytes - room for MaxPromptChars fully \u-escaped (surrogate pairs included) plus a model name
const MaxBodyBytes = 128 << 10

// GenerateRequest - POST /generate body
type GenerateRequest struct {
	Prompt    string `json:"prompt" validate:"required,max=10000"`
	ModelName string `json:"modelName,omitempty"`
}

// GenerateResponse - 200 body
type GenerateResponse struct {
	Success   bool   `json:"success"`
	Text      string `json:"text"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}
