package session

import (
	"context"
	"sync"
	"time"

	"medexam/intake-portal/internal/domain"
	"medexam/intake-portal/internal/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager is the in-memory registry of live draft sessions. Sessions are
// created implicitly when the applicant opens the form and discarded when
// they leave, submit, or idle out.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*DraftSession
	log      zerolog.Logger

	// onDiscard runs outside the registry lock for every removed session,
	// so preview cleanup can do I/O.
	onDiscard func(*DraftSession)
}

// NewManager builds an empty registry. onDiscard may be nil.
func NewManager(onDiscard func(*DraftSession)) *Manager {
	return &Manager{
		sessions:  make(map[string]*DraftSession),
		log:       logger.Get(),
		onDiscard: onDiscard,
	}
}

// Start creates a new session for one applicant and exam occurrence.
func (m *Manager) Start(examOccurrenceID string, variant domain.ExamVariant) *DraftSession {
	s := newDraftSession(uuid.NewString(), examOccurrenceID, variant)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info().Str("session_id", s.ID).Str("occurrence", examOccurrenceID).
		Str("variant", string(variant)).Msg("Draft session started")
	return s
}

// Get looks up a live session by id.
func (m *Manager) Get(id string) (*DraftSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Discard removes a session, cancels its context (aborting in-flight
// network work) and runs the cleanup hook.
func (m *Manager) Discard(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	s.cancel()
	if m.onDiscard != nil {
		m.onDiscard(s)
	}
	m.log.Info().Str("session_id", id).Msg("Draft session discarded")
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep discards sessions idle longer than maxIdle. Run it periodically
// from RunSweeper.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.LastTouched().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.Discard(id)
	}
	if len(stale) > 0 {
		m.log.Info().Int("count", len(stale)).Msg("Swept idle draft sessions")
	}
	return len(stale)
}

// RunSweeper blocks, sweeping every interval until ctx ends.
func (m *Manager) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(maxIdle)
		}
	}
}
