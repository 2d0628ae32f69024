package autofill

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opora-ai/docforge/pkg/apperrors"
	"github.com/opora-ai/docforge/pkg/models"
)

// Store holds autofill sessions and owns their mutation. All writes go
// through Update under the store's lock, so concurrent transitions on the
// same session serialize instead of racing; reads hand out snapshots the
// caller may use without synchronization. The interface is deliberately
// narrow so the in-memory implementation can be swapped for a durable one
// without touching the state machine.
type Store interface {
	// Get returns a snapshot of a session by id.
	Get(id uuid.UUID) (*models.AutofillSession, bool)

	// ActiveForUser returns a snapshot of the user's current non-terminal
	// session.
	ActiveForUser(userID string) (*models.AutofillSession, bool)

	// Put inserts or replaces a session. The store keeps its own copy; the
	// caller retains the argument. A non-terminal session becomes the user's
	// active one, superseding any previous active session, which stays
	// retrievable by id until swept.
	Put(session *models.AutofillSession)

	// Update runs fn on the live session under the store's lock. fn must
	// leave the session unmodified when it returns an error. On success the
	// store stamps UpdatedAt, re-indexes the user's active session and
	// returns a snapshot; a missing id yields ErrSessionNotFound.
	Update(id uuid.UUID, fn func(*models.AutofillSession) error) (*models.AutofillSession, error)

	// Delete removes a session by id.
	Delete(id uuid.UUID)

	// SweepExpired cancels and evicts sessions idle longer than the window.
	// Terminal sessions past the window are evicted as-is. Returns the
	// sessions that were removed.
	SweepExpired(idle time.Duration) []*models.AutofillSession
}

type memoryStore struct {
	mu           sync.Mutex
	byID         map[uuid.UUID]*models.AutofillSession
	activeByUser map[string]uuid.UUID
}

// NewMemoryStore creates the in-memory session store.
func NewMemoryStore() Store {
	return &memoryStore{
		byID:         make(map[uuid.UUID]*models.AutofillSession),
		activeByUser: make(map[string]uuid.UUID),
	}
}

// snapshot copies a session so readers never share the value map or the
// question bookkeeping with the store's live instance.
func snapshot(s *models.AutofillSession) *models.AutofillSession {
	out := *s
	out.Values = make(models.FieldValues, len(s.Values))
	for k, v := range s.Values {
		out.Values[k] = v
	}
	out.QuestionsAsked = append([]string(nil), s.QuestionsAsked...)
	out.QuestionsAnswered = append([]string(nil), s.QuestionsAnswered...)
	return &out
}

func (m *memoryStore) Get(id uuid.UUID) (*models.AutofillSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return snapshot(s), true
}

func (m *memoryStore) ActiveForUser(userID string) (*models.AutofillSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.activeByUser[userID]
	if !ok {
		return nil, false
	}
	s, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return snapshot(s), true
}

func (m *memoryStore) Put(session *models.AutofillSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byID[session.ID] = snapshot(session)
	m.reindex(session)
}

func (m *memoryStore) Update(id uuid.UUID, fn func(*models.AutofillSession) error) (*models.AutofillSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = time.Now().UTC()
	m.reindex(s)
	return snapshot(s), nil
}

// reindex maintains the user -> active session map. Callers hold m.mu.
func (m *memoryStore) reindex(s *models.AutofillSession) {
	if s.State.Terminal() {
		if m.activeByUser[s.UserID] == s.ID {
			delete(m.activeByUser, s.UserID)
		}
		return
	}
	m.activeByUser[s.UserID] = s.ID
}

func (m *memoryStore) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)
	if m.activeByUser[s.UserID] == id {
		delete(m.activeByUser, s.UserID)
	}
}

func (m *memoryStore) SweepExpired(idle time.Duration) []*models.AutofillSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	var swept []*models.AutofillSession
	for id, s := range m.byID {
		if s.UpdatedAt.After(cutoff) {
			continue
		}
		if !s.State.Terminal() {
			s.State = models.StateCancelled
		}
		delete(m.byID, id)
		if m.activeByUser[s.UserID] == id {
			delete(m.activeByUser, s.UserID)
		}
		swept = append(swept, s)
	}
	return swept
}
