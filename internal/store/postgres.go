package store

import (
	"context"
	"database/sql"
	"fmt"

	"chatbot-engine/internal/models"
)

// Postgres implements Store on a plain *sql.DB (lib/pq driver).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

const sessionColumns = `id, token, customer_name, customer_phone, customer_type, category, status,
	transferred_to_agent, lead_name, lead_city, lead_state, establishment_type,
	order_establishment, order_tax_id, order_products, order_delivery_date,
	created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }, s *models.Session) error {
	return row.Scan(
		&s.ID, &s.Token, &s.CustomerName, &s.CustomerPhone, &s.CustomerType, &s.Category, &s.Status,
		&s.TransferredToAgent, &s.LeadName, &s.LeadCity, &s.LeadState, &s.EstablishmentType,
		&s.OrderEstablishment, &s.OrderTaxID, &s.OrderProducts, &s.OrderDeliveryDate,
		&s.CreatedAt, &s.UpdatedAt,
	)
}

func (p *Postgres) CreateSession(ctx context.Context, s *models.Session) error {
	if s.CustomerType == "" {
		s.CustomerType = models.CustomerUnknown
	}
	if s.Category == "" {
		s.Category = models.CategoryUnknown
	}
	if s.Status == "" {
		s.Status = models.StatusActive
	}

	err := p.db.QueryRowContext(ctx, `
		INSERT INTO sessions (token, customer_name, customer_phone, customer_type, category, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		s.Token, s.CustomerName, s.CustomerPhone, s.CustomerType, s.Category, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (p *Postgres) SessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	err := scanSession(p.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE token = $1`, token), &s)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session by token: %w", err)
	}
	return &s, nil
}

func (p *Postgres) UpdateSession(ctx context.Context, s *models.Session) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE sessions
		SET customer_name = $2, customer_phone = $3, customer_type = $4, category = $5,
		    status = $6, transferred_to_agent = $7,
		    lead_name = $8, lead_city = $9, lead_state = $10, establishment_type = $11,
		    order_establishment = $12, order_tax_id = $13, order_products = $14,
		    order_delivery_date = $15, updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.CustomerName, s.CustomerPhone, s.CustomerType, s.Category,
		s.Status, s.TransferredToAgent,
		s.LeadName, s.LeadCity, s.LeadState, s.EstablishmentType,
		s.OrderEstablishment, s.OrderTaxID, s.OrderProducts, s.OrderDeliveryDate,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListSessions(ctx context.Context) ([]models.Session, error) {
	return p.querySessions(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY created_at DESC`)
}

func (p *Postgres) SessionsByCategory(ctx context.Context, c models.Category) ([]models.Session, error) {
	return p.querySessions(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE category = $1
		ORDER BY created_at DESC`, c)
}

func (p *Postgres) SessionsByCustomerType(ctx context.Context, t models.CustomerType) ([]models.Session, error) {
	return p.querySessions(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE customer_type = $1
		ORDER BY created_at DESC`, t)
}

func (p *Postgres) querySessions(ctx context.Context, query string, args ...interface{}) ([]models.Session, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendMessage assigns the next sequence number inside the insert so the
// per-session ordering holds without a separate read.
func (p *Postgres) AppendMessage(ctx context.Context, m *models.Message) error {
	if m.Kind == "" {
		m.Kind = models.KindText
	}

	err := p.db.QueryRowContext(ctx, `
		INSERT INTO messages (session_id, sender, content, kind, seq)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = $1))
		RETURNING id, seq, created_at`,
		m.SessionID, m.Sender, m.Content, m.Kind,
	).Scan(&m.ID, &m.Seq, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (p *Postgres) MessagesBySession(ctx context.Context, sessionID int64) ([]models.Message, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, session_id, sender, content, kind, seq, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("messages by session: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &m.Kind, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (p *Postgres) ActiveKnowledge(ctx context.Context) ([]models.KnowledgeEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, category, question, answer, keywords, is_active, created_at, updated_at
		FROM knowledge_base
		WHERE is_active = TRUE
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("active knowledge: %w", err)
	}
	defer rows.Close()

	var entries []models.KnowledgeEntry
	for rows.Next() {
		var k models.KnowledgeEntry
		if err := rows.Scan(&k.ID, &k.Category, &k.Question, &k.Answer, &k.Keywords, &k.IsActive, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		entries = append(entries, k)
	}
	return entries, rows.Err()
}

func (p *Postgres) ActiveCatalogs(ctx context.Context) ([]models.Catalog, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, description, file_url, category, is_active, created_at, updated_at
		FROM catalogs
		WHERE is_active = TRUE
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("active catalogs: %w", err)
	}
	defer rows.Close()

	var catalogs []models.Catalog
	for rows.Next() {
		var c models.Catalog
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.FileURL, &c.Category, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		catalogs = append(catalogs, c)
	}
	return catalogs, rows.Err()
}
