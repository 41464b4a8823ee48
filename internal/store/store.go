// Package store provides durable access to sessions, their ordered message
// logs, and the knowledge/catalog tables the engine reads.
package store

import (
	"context"
	"errors"

	"chatbot-engine/internal/models"
)

// ErrNotFound is returned by lookups that miss.
var ErrNotFound = errors.New("store: not found")

// SessionStore is the durable record of conversations.
type SessionStore interface {
	// CreateSession inserts the session and fills ID and timestamps.
	CreateSession(ctx context.Context, s *models.Session) error
	// SessionByToken returns ErrNotFound on a miss.
	SessionByToken(ctx context.Context, token string) (*models.Session, error)
	// UpdateSession writes the session's mutable fields.
	UpdateSession(ctx context.Context, s *models.Session) error
	// ListSessions returns all sessions, newest first.
	ListSessions(ctx context.Context) ([]models.Session, error)
	// SessionsByCategory filters by conversation category, newest first.
	SessionsByCategory(ctx context.Context, c models.Category) ([]models.Session, error)
	// SessionsByCustomerType filters by customer classification, newest first.
	SessionsByCustomerType(ctx context.Context, t models.CustomerType) ([]models.Session, error)
}

// MessageStore is the append-only per-session message log.
type MessageStore interface {
	// AppendMessage inserts the message with the next sequence number for
	// its session and fills ID, Seq and CreatedAt.
	AppendMessage(ctx context.Context, m *models.Message) error
	// MessagesBySession returns the ordered log, oldest first.
	MessagesBySession(ctx context.Context, sessionID int64) ([]models.Message, error)
}

// KnowledgeStore reads the configurable knowledge base.
type KnowledgeStore interface {
	ActiveKnowledge(ctx context.Context) ([]models.KnowledgeEntry, error)
}

// CatalogStore reads the catalogs available for automatic sending.
type CatalogStore interface {
	ActiveCatalogs(ctx context.Context) ([]models.Catalog, error)
}

// Store aggregates everything the engine needs from persistence.
type Store interface {
	SessionStore
	MessageStore
	KnowledgeStore
	CatalogStore
}
