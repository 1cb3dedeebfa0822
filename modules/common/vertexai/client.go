package vertexai

import (
	"fmt"
	"os"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/config"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// DetectCredentials - Vertex AI credentials for the genai client
// Order: VERTEXAI_CREDENTIALS_JSON, VERTEXAI_CREDENTIALS_PATH, then Application Default Credentials
func DetectCredentials(cfg *config.Config) (*auth.Credentials, error) {
	opts := &credentials.DetectOptions{
		Scopes: []string{cloudPlatformScope},
	}

	switch {
	case cfg.VertexAICredentialsJSON != "":
		log.Info().Msg("[VertexAI] Using VERTEXAI_CREDENTIALS_JSON from environment")
		opts.CredentialsJSON = []byte(cfg.VertexAICredentialsJSON)
	case cfg.VertexAICredentialsPath != "":
		log.Info().Str("path", cfg.VertexAICredentialsPath).Msg("[VertexAI] Using credentials file")
		data, err := os.ReadFile(cfg.VertexAICredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		opts.CredentialsJSON = data
	default:
		log.Warn().Msg("[VertexAI] No explicit credentials found, using Application Default Credentials")
	}

	creds, err := credentials.DetectDefault(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect Vertex AI credentials: %w", err)
	}
	return creds, nil
}
