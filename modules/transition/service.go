package transition

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

// Generate - transition prompts for every adjacent pair of panels in the image
func (s *Service) Generate(ctx context.Context, cfg model.TransitionConfig, image *utils.InlineImage) (*model.TransitionResult, error) {
	if err := model.ValidateTransitionConfig(cfg); err != nil {
		return nil, err
	}
	req, err := BuildRequest(s.modelName, cfg, image)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Int("count", cfg.TransitionCount).Msg("[Transition] generating")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, req)
	if err != nil {
		metrics.RecordGeneration(metrics.KindTransition, metrics.OutcomeFailed, time.Since(start).Seconds())
		return nil, gemini.Classify(err)
	}

	result, err := Decode(text)
	if err != nil {
		metrics.RecordGeneration(metrics.KindTransition, metrics.OutcomeFailed, time.Since(start).Seconds())
		log.Ctx(ctx).Error().Err(err).Int("len", len(text)).Msg("[Transition] response rejected")
		return nil, err
	}
	metrics.RecordGeneration(metrics.KindTransition, metrics.OutcomeSuccess, time.Since(start).Seconds())

	for _, span := range result.Transitions {
		if !span.Adjacent() {
			log.Ctx(ctx).Warn().
				Int("from", span.FromShotIndex).
				Int("to", span.ToShotIndex).
				Msg("[Transition] non-adjacent span")
		}
		if len(span.TransitionPrompts) != cfg.TransitionCount {
			log.Ctx(ctx).Warn().
				Int("from", span.FromShotIndex).
				Int("requested", cfg.TransitionCount).
				Int("received", len(span.TransitionPrompts)).
				Msg("[Transition] prompt count differs from request")
		}
	}

	log.Ctx(ctx).Info().Int("spans", len(result.Transitions)).Dur("took", time.Since(start)).Msg("[Transition] generated")
	return result, nil
}

func Decode(text string) (*model.TransitionResult, error) {
	var result model.TransitionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, apperror.SchemaViolation(err)
	}
	if err := model.ValidateTransitionResult(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
