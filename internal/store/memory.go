package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatbot-engine/internal/models"
)

// Memory is an in-memory Store used by tests and local development. It
// mirrors the postgres implementation's semantics: tokens are unique,
// message sequence numbers are strictly increasing per session.
type Memory struct {
	mu        sync.Mutex
	nextSess  int64
	nextMsg   int64
	sessions  map[int64]*models.Session
	byToken   map[string]int64
	messages  map[int64][]models.Message
	Knowledge []models.KnowledgeEntry
	Catalogs  []models.Catalog
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[int64]*models.Session),
		byToken:  make(map[string]int64),
		messages: make(map[int64][]models.Message),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.CustomerType == "" {
		s.CustomerType = models.CustomerUnknown
	}
	if s.Category == "" {
		s.Category = models.CategoryUnknown
	}
	if s.Status == "" {
		s.Status = models.StatusActive
	}

	m.nextSess++
	s.ID = m.nextSess
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt

	copied := *s
	m.sessions[s.ID] = &copied
	m.byToken[s.Token] = s.ID
	return nil
}

func (m *Memory) SessionByToken(_ context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m.sessions[id]
	return &copied, nil
}

func (m *Memory) UpdateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *Memory) ListSessions(_ context.Context) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filtered(func(*models.Session) bool { return true }), nil
}

func (m *Memory) SessionsByCategory(_ context.Context, c models.Category) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filtered(func(s *models.Session) bool { return s.Category == c }), nil
}

func (m *Memory) SessionsByCustomerType(_ context.Context, t models.CustomerType) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filtered(func(s *models.Session) bool { return s.CustomerType == t }), nil
}

func (m *Memory) filtered(keep func(*models.Session) bool) []models.Session {
	var out []models.Session
	for _, s := range m.sessions {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *Memory) AppendMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.Kind == "" {
		msg.Kind = models.KindText
	}
	m.nextMsg++
	msg.ID = m.nextMsg
	msg.Seq = len(m.messages[msg.SessionID]) + 1
	msg.CreatedAt = time.Now().UTC()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], *msg)
	return nil
}

func (m *Memory) MessagesBySession(_ context.Context, sessionID int64) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[sessionID]
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) ActiveKnowledge(context.Context) ([]models.KnowledgeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.KnowledgeEntry
	for _, k := range m.Knowledge {
		if k.IsActive {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *Memory) ActiveCatalogs(context.Context) ([]models.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Catalog
	for _, c := range m.Catalogs {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}
