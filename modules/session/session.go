package session

import (
	"sync"
	"time"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/model"
	"cine-prompt-server/modules/common/utils"
	"cine-prompt-server/modules/render"
)

// Session - transient state of one user's workspace
type Session struct {
	ID string

	mu           sync.RWMutex
	clock        func() time.Time
	createdAt    time.Time
	lastActivity time.Time

	storyboard Slot[model.GeneratedData]
	// inputs of the in-flight storyboard, committed when it completes
	pendingConfig model.UserConfig
	pendingImage  *utils.InlineImage
	config        *model.UserConfig
	image         *utils.InlineImage
	params        *model.GlobalParams

	transitions       Slot[model.TransitionResult]
	pendingTransition model.TransitionConfig
	transitionConfig  *model.TransitionConfig
}

func newSession(id string, historyLimit int, clock func() time.Time) *Session {
	now := clock()
	return &Session{
		ID:           id,
		clock:        clock,
		createdAt:    now,
		lastActivity: now,
		storyboard:   newSlot[model.GeneratedData](historyLimit),
		transitions:  newSlot[model.TransitionResult](historyLimit),
	}
}

func (s *Session) touch() {
	s.lastActivity = s.clock()
}

// BeginStoryboard - a newer call supersedes an older in-flight one
func (s *Session) BeginStoryboard(cfg model.UserConfig, image *utils.InlineImage) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pendingConfig = cfg
	s.pendingImage = image
	return s.storyboard.BeginGeneration()
}

// CompleteStoryboard - replaces the result wholesale and resets the edited params to the new ones
func (s *Session) CompleteStoryboard(tok Token, data *model.GeneratedData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.storyboard.CompleteGeneration(tok, data) {
		return false
	}
	s.touch()
	cfg := s.pendingConfig
	s.config = &cfg
	s.image = s.pendingImage
	params := data.GlobalParams
	s.params = &params
	s.pendingImage = nil
	return true
}

func (s *Session) FailStoryboard(tok Token, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.storyboard.FailGeneration(tok, err) {
		return false
	}
	s.touch()
	s.pendingImage = nil
	return true
}

func (s *Session) BeginTransitions(cfg model.TransitionConfig) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pendingTransition = cfg
	return s.transitions.BeginGeneration()
}

func (s *Session) CompleteTransitions(tok Token, result *model.TransitionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.transitions.CompleteGeneration(tok, result) {
		return false
	}
	s.touch()
	cfg := s.pendingTransition
	s.transitionConfig = &cfg
	return true
}

func (s *Session) FailTransitions(tok Token, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.transitions.FailGeneration(tok, err) {
		return false
	}
	s.touch()
	return true
}

// UpdateGlobalParams - edits the style baseline without a model call
func (s *Session) UpdateGlobalParams(patch model.GlobalParamsPatch) (model.GlobalParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.params == nil {
		return model.GlobalParams{}, apperror.NotFound("no storyboard to edit yet")
	}
	updated := patch.Apply(*s.params)
	s.params = &updated
	s.touch()
	return updated, nil
}

// RegenerateInputs - config and image of the current result plus the edited params as seed
func (s *Session) RegenerateInputs() (model.UserConfig, *utils.InlineImage, model.GlobalParams, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil || s.params == nil {
		return model.UserConfig{}, nil, model.GlobalParams{}, apperror.NotFound("no storyboard to regenerate yet")
	}
	return *s.config, s.image, *s.params, nil
}

// Snapshot - read model of the session with every rendering
type Snapshot struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`

	Storyboard *StoryboardState  `json:"storyboard"`
	Transition *TransitionsState `json:"transitions"`
}

type StoryboardState struct {
	Generation   uint64                 `json:"generation"`
	InFlight     bool                   `json:"inFlight"`
	Error        string                 `json:"error,omitempty"`
	ErrorKind    string                 `json:"errorKind,omitempty"`
	HistoryLen   int                    `json:"historyLen"`
	HasImage     bool                   `json:"hasImage"`
	Config       *model.UserConfig      `json:"config,omitempty"`
	Data         *model.GeneratedData   `json:"data,omitempty"`
	GlobalParams *model.GlobalParams    `json:"globalParams,omitempty"`
	Rendered     *render.StoryboardView `json:"rendered,omitempty"`
}

type TransitionsState struct {
	Generation uint64                  `json:"generation"`
	InFlight   bool                    `json:"inFlight"`
	Error      string                  `json:"error,omitempty"`
	ErrorKind  string                  `json:"errorKind,omitempty"`
	HistoryLen int                     `json:"historyLen"`
	Config     *model.TransitionConfig `json:"config,omitempty"`
	Result     *model.TransitionResult `json:"result,omitempty"`
	Rendered   *render.TransitionsView `json:"rendered,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sb := &StoryboardState{
		Generation:   s.storyboard.Generation(),
		InFlight:     s.storyboard.InFlight(),
		HistoryLen:   s.storyboard.HistoryLen(),
		HasImage:     s.image != nil,
		Config:       s.config,
		Data:         s.storyboard.Current(),
		GlobalParams: s.params,
	}
	if err := s.storyboard.LastErr(); err != nil {
		sb.Error = apperror.MessageOf(err)
		sb.ErrorKind = string(apperror.KindOf(err))
	}
	if sb.Data != nil && s.params != nil {
		view := render.Storyboard(sb.Data, *s.params)
		sb.Rendered = &view
	}

	tr := &TransitionsState{
		Generation: s.transitions.Generation(),
		InFlight:   s.transitions.InFlight(),
		HistoryLen: s.transitions.HistoryLen(),
		Config:     s.transitionConfig,
		Result:     s.transitions.Current(),
	}
	if err := s.transitions.LastErr(); err != nil {
		tr.Error = apperror.MessageOf(err)
		tr.ErrorKind = string(apperror.KindOf(err))
	}
	if tr.Result != nil && s.transitionConfig != nil {
		view := render.Transitions(tr.Result, s.transitionConfig.TransitionCount)
		tr.Rendered = &view
	}

	return Snapshot{
		ID:           s.ID,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
		Storyboard:   sb,
		Transition:   tr,
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastActivity)
}

func (s *Session) age(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.createdAt)
}
