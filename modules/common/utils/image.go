package utils

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/gemini"
)

// InlineImage - encoded image ready for a model request
type InlineImage struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 only, never a data URL
}

// Part - inline data part for a model request
func (img *InlineImage) Part() gemini.Part {
	return gemini.Part{InlineData: &gemini.InlineData{MimeType: img.MimeType, Data: img.Data}}
}

// EncodeImage - reads the whole source and base64 encodes it
// Missing MIME types are sniffed from the bytes. No size checks here.
func EncodeImage(r io.Reader, declaredMime string) (*InlineImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperror.Encoding(err)
	}

	mimeType := normalizeMime(declaredMime)
	if mimeType == "" {
		mimeType = DetectMime(data)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	log.Debug().
		Str("mime", mimeType).
		Int("bytes", len(data)).
		Int("base64_chars", len(encoded)).
		Msg("[Encoder] image converted to base64")

	return &InlineImage{MimeType: mimeType, Data: encoded}, nil
}

// ParseDataURL - "data:image/png;base64,AAAA" or bare base64 to InlineImage
func ParseDataURL(value, fallbackMime string) (*InlineImage, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperror.Encoding(fmt.Errorf("empty image data"))
	}

	mimeType := normalizeMime(fallbackMime)
	payload := value
	if strings.HasPrefix(value, "data:") {
		header, rest, ok := strings.Cut(value, ",")
		if !ok {
			return nil, apperror.Encoding(fmt.Errorf("malformed data URL"))
		}
		payload = rest
		if declared, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";"); declared != "" {
			mimeType = normalizeMime(declared)
		}
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperror.Encoding(fmt.Errorf("invalid base64 image data: %w", err))
	}
	if mimeType == "" {
		mimeType = DetectMime(raw)
	}
	return &InlineImage{MimeType: mimeType, Data: payload}, nil
}

// IsImageMime - only image/* passes the upload filter
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(normalizeMime(mimeType), "image/")
}

// DetectMime - MIME type from content
func DetectMime(data []byte) string {
	return normalizeMime(mimetype.Detect(data).String())
}

func normalizeMime(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "application/octet-stream" {
		return ""
	}
	return m
}
