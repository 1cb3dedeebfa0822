package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/metrics"
	"cine-prompt-server/modules/common/model"
	"cine-prompt-server/modules/common/utils"
)

const (
	kindStoryboard = "storyboard"
	kindTransition = "transition"
)

type StoryboardGenerator interface {
	Generate(ctx context.Context, cfg model.UserConfig, image *utils.InlineImage, seed *model.GlobalParams) (*model.GeneratedData, error)
}

type TransitionGenerator interface {
	Generate(ctx context.Context, cfg model.TransitionConfig, image *utils.InlineImage) (*model.TransitionResult, error)
}

// Controller - wires user actions to the generators and the session state
type Controller struct {
	sessions    *Manager
	storyboards StoryboardGenerator
	transitions TransitionGenerator
	guard       Guard
	publisher   Publisher
}

func NewController(sessions *Manager, storyboards StoryboardGenerator, transitions TransitionGenerator, guard Guard, publisher Publisher) *Controller {
	if guard == nil {
		guard = NewMemoryGuard()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Controller{
		sessions:    sessions,
		storyboards: storyboards,
		transitions: transitions,
		guard:       guard,
		publisher:   publisher,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

func (c *Controller) Snapshot(id string) (*Snapshot, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	snap := s.Snapshot()
	return &snap, nil
}

// GenerateStoryboard - fresh generation from the config panel
func (c *Controller) GenerateStoryboard(ctx context.Context, id string, cfg model.UserConfig, image *utils.InlineImage) (*Snapshot, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateUserConfig(cfg, image != nil); err != nil {
		return nil, err
	}
	return c.runStoryboard(ctx, s, cfg, image, nil)
}

// Regenerate - same config and image, edited params as the style anchor
func (c *Controller) Regenerate(ctx context.Context, id string) (*Snapshot, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	cfg, image, params, err := s.RegenerateInputs()
	if err != nil {
		return nil, err
	}
	return c.runStoryboard(ctx, s, cfg, image, &params)
}

func (c *Controller) runStoryboard(ctx context.Context, s *Session, cfg model.UserConfig, image *utils.InlineImage, seed *model.GlobalParams) (*Snapshot, error) {
	release, err := c.guard.Acquire(ctx, GuardKey(s.ID, kindStoryboard))
	if err != nil {
		return nil, err
	}
	defer release()

	tok := s.BeginStoryboard(cfg, image)
	c.publisher.Publish(Event{Type: EventGenerationStarted, SessionID: s.ID, Kind: kindStoryboard, Generation: uint64(tok)})

	data, err := c.storyboards.Generate(ctx, cfg, image, seed)
	if err != nil {
		if s.FailStoryboard(tok, err) {
			c.publishFailure(s.ID, kindStoryboard, tok, err)
		} else {
			c.discarded(ctx, s.ID, kindStoryboard, tok)
		}
		return nil, err
	}

	if !s.CompleteStoryboard(tok, data) {
		c.discarded(ctx, s.ID, kindStoryboard, tok)
		snap := s.Snapshot()
		return &snap, nil
	}

	snap := s.Snapshot()
	c.publisher.Publish(Event{Type: EventGenerationCompleted, SessionID: s.ID, Kind: kindStoryboard, Generation: uint64(tok), Snapshot: &snap})
	return &snap, nil
}

// UpdateParams - edited params re-render every view without a model call
func (c *Controller) UpdateParams(id string, patch model.GlobalParamsPatch) (*Snapshot, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, apperror.Validation("at least one style parameter is required")
	}
	if _, err := s.UpdateGlobalParams(patch); err != nil {
		return nil, err
	}

	snap := s.Snapshot()
	c.publisher.Publish(Event{Type: EventParamsUpdated, SessionID: s.ID, Kind: kindStoryboard, Snapshot: &snap})
	return &snap, nil
}

// GenerateTransitions - in-between prompts for an uploaded storyboard grid
func (c *Controller) GenerateTransitions(ctx context.Context, id string, cfg model.TransitionConfig, image *utils.InlineImage) (*Snapshot, error) {
	s, err := c.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateTransitionConfig(cfg); err != nil {
		return nil, err
	}
	if image == nil {
		return nil, apperror.Validation("a storyboard image is required to generate transitions")
	}

	release, err := c.guard.Acquire(ctx, GuardKey(s.ID, kindTransition))
	if err != nil {
		return nil, err
	}
	defer release()

	tok := s.BeginTransitions(cfg)
	c.publisher.Publish(Event{Type: EventGenerationStarted, SessionID: s.ID, Kind: kindTransition, Generation: uint64(tok)})

	result, err := c.transitions.Generate(ctx, cfg, image)
	if err != nil {
		if s.FailTransitions(tok, err) {
			c.publishFailure(s.ID, kindTransition, tok, err)
		} else {
			c.discarded(ctx, s.ID, kindTransition, tok)
		}
		return nil, err
	}

	if !s.CompleteTransitions(tok, result) {
		c.discarded(ctx, s.ID, kindTransition, tok)
		snap := s.Snapshot()
		return &snap, nil
	}

	snap := s.Snapshot()
	c.publisher.Publish(Event{Type: EventGenerationCompleted, SessionID: s.ID, Kind: kindTransition, Generation: uint64(tok), Snapshot: &snap})
	return &snap, nil
}

func (c *Controller) publishFailure(id, kind string, tok Token, err error) {
	c.publisher.Publish(Event{
		Type:       EventGenerationFailed,
		SessionID:  id,
		Kind:       kind,
		Generation: uint64(tok),
		Error:      apperror.MessageOf(err),
		ErrorKind:  string(apperror.KindOf(err)),
	})
}

func (c *Controller) discarded(ctx context.Context, id, kind string, tok Token) {
	metrics.GenerationsTotal.WithLabelValues(kind, metrics.OutcomeDiscarded).Inc()
	log.Ctx(ctx).Info().Str("session", id).Str("kind", kind).Uint64("generation", uint64(tok)).Msg("[Session] stale result discarded")
}
