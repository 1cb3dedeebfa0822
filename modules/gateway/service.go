package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/gemini"
	"cine-prompt-server/modules/common/metrics"
)

// Service - plain prompt passthrough with a hard client-visible ceiling
type Service struct {
	generator gemini.TextGenerator
	timeout   time.Duration
	// upper bound for an abandoned upstream call
	abandonAfter time.Duration
}

func NewService(generator gemini.TextGenerator, timeout, abandonAfter time.Duration) *Service {
	if abandonAfter < timeout {
		abandonAfter = timeout
	}
	return &Service{
		generator:    generator,
		timeout:      timeout,
		abandonAfter: abandonAfter,
	}
}

type result struct {
	text string
	err  error
}

// Generate - races the upstream call against the timer; the loser is abandoned, not retried
func (s *Service) Generate(ctx context.Context, modelName, prompt string) (string, error) {
	upstreamCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.abandonAfter)
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		defer cancel()
		text, err := s.generator.GenerateText(upstreamCtx, modelName, prompt)
		done <- result{text: text, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		outcome := metrics.OutcomeSuccess
		if r.err != nil {
			outcome = metrics.OutcomeFailed
		}
		metrics.RecordGeneration(metrics.KindGateway, outcome, time.Since(start).Seconds())
		if r.err != nil {
			return "", gemini.Classify(r.err)
		}
		return r.text, nil

	case <-timer.C:
		metrics.RecordGeneration(metrics.KindGateway, metrics.OutcomeFailed, time.Since(start).Seconds())
		log.Ctx(ctx).Warn().Str("model", modelName).Dur("timeout", s.timeout).Msg("[Gateway] upstream call abandoned")
		return "", apperror.New(apperror.KindUpstreamTimeout, "Request to AI service timed out", nil)

	case <-ctx.Done():
		return "", gemini.Classify(ctx.Err())
	}
}
