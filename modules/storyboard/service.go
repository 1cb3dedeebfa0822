package storyboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/gemini"
	"cine-prompt-server/modules/common/metrics"
	"cine-prompt-server/modules/common/model"
	"cine-prompt-server/modules/common/utils"
)

type Service struct {
	generator gemini.Generator
	modelName string
	timeout   time.Duration
}

func NewService(generator gemini.Generator, modelName string, timeout time.Duration) *Service {
	return &Service{
		generator: generator,
		modelName: modelName,
		timeout:   timeout,
	}
}

// Generate - one storyboard generation; seed is the refine path's style anchor
func (s *Service) Generate(ctx context.Context, cfg model.UserConfig, image *utils.InlineImage, seed *model.GlobalParams) (*model.GeneratedData, error) {
	if err := model.ValidateUserConfig(cfg, image != nil); err != nil {
		return nil, err
	}

	req := BuildRequest(s.modelName, cfg, image, seed)

	log.Ctx(ctx).Info().
		Int("shots", cfg.ShotCount).
		Str("aspect", cfg.AspectRatio).
		Bool("image", image != nil).
		Bool("refine", seed != nil).
		Msg("[Storyboard] generating")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, req)
	if err != nil {
		metrics.RecordGeneration(metrics.KindStoryboard, metrics.OutcomeFailed, time.Since(start).Seconds())
		return nil, gemini.Classify(err)
	}

	data, err := Decode(text)
	if err != nil {
		metrics.RecordGeneration(metrics.KindStoryboard, metrics.OutcomeFailed, time.Since(start).Seconds())
		log.Ctx(ctx).Error().Err(err).Int("len", len(text)).Msg("[Storyboard] response rejected")
		return nil, err
	}
	metrics.RecordGeneration(metrics.KindStoryboard, metrics.OutcomeSuccess, time.Since(start).Seconds())

	if len(data.Shots) != cfg.ShotCount {
		log.Ctx(ctx).Warn().Int("requested", cfg.ShotCount).Int("received", len(data.Shots)).Msg("[Storyboard] shot count differs from request")
	}
	if !model.ContiguousIDs(data.Shots) {
		log.Ctx(ctx).Warn().Msg("[Storyboard] shot ids are not contiguous")
	}

	log.Ctx(ctx).Info().Int("shots", len(data.Shots)).Dur("took", time.Since(start)).Msg("[Storyboard] generated")
	return data, nil
}

// Decode - raw model text to a validated GeneratedData
func Decode(text string) (*model.GeneratedData, error) {
	var data model.GeneratedData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, apperror.SchemaViolation(err)
	}
	if err := model.ValidateGeneratedData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
