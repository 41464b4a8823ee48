package models

import "time"

// KnowledgeEntry is one Q&A item from the configurable knowledge base.
// Active entries are snapshotted into the completion system prompt.
type KnowledgeEntry struct {
	ID        int64     `json:"id" db:"id"`
	Category  string    `json:"category" db:"category"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	Keywords  string    `json:"keywords,omitempty" db:"keywords"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
