package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/metrics"
)

const defaultCleanupInterval = 5 * time.Minute

// Manager - in-memory sessions with idle and age expiry
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex

	idleTTL      time.Duration
	maxAge       time.Duration
	historyLimit int
	clock        func() time.Time

	// called for every session removed, outside the manager lock
	onEvict func(id string)
}

func NewManager(idleTTL, maxAge time.Duration, historyLimit int) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		idleTTL:      idleTTL,
		maxAge:       maxAge,
		historyLimit: historyLimit,
		clock:        time.Now,
	}
}

// OnEvict - hook run when a session is deleted or expires
func (m *Manager) OnEvict(fn func(id string)) {
	m.onEvict = fn
}

func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.historyLimit, m.clock)

	m.mutex.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mutex.Unlock()

	metrics.SetActiveSessions(count)
	log.Info().Str("session", s.ID).Int("active", count).Msg("[Session] created")
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mutex.RLock()
	s, ok := m.sessions[id]
	m.mutex.RUnlock()
	if !ok {
		return nil, apperror.NotFound("session not found")
	}
	return s, nil
}

func (m *Manager) Delete(id string) bool {
	m.mutex.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mutex.Unlock()

	if !ok {
		return false
	}
	metrics.SetActiveSessions(count)
	if m.onEvict != nil {
		m.onEvict(id)
	}
	log.Info().Str("session", id).Int("active", count).Msg("[Session] deleted")
	return true
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// CleanupExpired - drops sessions past maxAge or idle longer than idleTTL
func (m *Manager) CleanupExpired() int {
	now := m.clock()
	var evicted []string

	m.mutex.Lock()
	for id, s := range m.sessions {
		expired := m.maxAge > 0 && s.age(now) > m.maxAge
		inactive := m.idleTTL > 0 && s.idleSince(now) > m.idleTTL
		if expired || inactive {
			delete(m.sessions, id)
			evicted = append(evicted, id)

			reason := "expired"
			if inactive {
				reason = "inactive"
			}
			log.Info().Str("session", id).Str("reason", reason).Msg("[Session] cleaned up")
		}
	}
	count := len(m.sessions)
	m.mutex.Unlock()

	if m.onEvict != nil {
		for _, id := range evicted {
			m.onEvict(id)
		}
	}
	if len(evicted) > 0 {
		metrics.SetActiveSessions(count)
		log.Info().Int("cleaned", len(evicted)).Int("active", count).Msg("[Session] cleanup finished")
	}
	return len(evicted)
}

// StartCleanupRoutine - runs CleanupExpired until ctx is done
func (m *Manager) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CleanupExpired()
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("[Session] started cleanup routine")
}
