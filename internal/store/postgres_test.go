package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-engine/internal/models"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func sessionRow(s models.Session) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "token", "customer_name", "customer_phone", "customer_type", "category", "status",
		"transferred_to_agent", "lead_name", "lead_city", "lead_state", "establishment_type",
		"order_establishment", "order_tax_id", "order_products", "order_delivery_date",
		"created_at", "updated_at",
	}).AddRow(
		s.ID, s.Token, s.CustomerName, s.CustomerPhone, s.CustomerType, s.Category, s.Status,
		s.TransferredToAgent, s.LeadName, s.LeadCity, s.LeadState, s.EstablishmentType,
		s.OrderEstablishment, s.OrderTaxID, s.OrderProducts, s.OrderDeliveryDate,
		s.CreatedAt, s.UpdatedAt,
	)
}

func TestPostgresCreateSession(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs("tok-1", "Padaria Teste", "", models.CustomerUnknown, models.CategoryUnknown, models.StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	sess := &models.Session{Token: "tok-1", CustomerName: "Padaria Teste"}
	require.NoError(t, p.CreateSession(context.Background(), sess))

	assert.Equal(t, int64(7), sess.ID)
	assert.Equal(t, models.CustomerUnknown, sess.CustomerType)
	assert.Equal(t, models.StatusActive, sess.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionByToken(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now()

	stored := models.Session{
		ID: 3, Token: "tok-3", CustomerType: models.CustomerExisting,
		Category: models.CategoryOrder, Status: models.StatusActive,
		CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectQuery(`(?s)SELECT .+ FROM sessions.+WHERE token = \$1`).
		WithArgs("tok-3").
		WillReturnRows(sessionRow(stored))

	got, err := p.SessionByToken(context.Background(), "tok-3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, models.CustomerExisting, got.CustomerType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionByTokenNotFound(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM sessions.+WHERE token = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := p.SessionByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUpdateSession(t *testing.T) {
	p, mock := newMockStore(t)

	sess := &models.Session{
		ID:           5,
		CustomerType: models.CustomerProspect,
		Category:     models.CategoryInformation,
		Status:       models.StatusActive,
		LeadName:     "João",
		LeadCity:     "Campinas",
		LeadState:    "SP",
	}
	mock.ExpectExec(`(?s)UPDATE sessions.+WHERE id = \$1`).
		WithArgs(sess.ID, sess.CustomerName, sess.CustomerPhone, sess.CustomerType, sess.Category,
			sess.Status, sess.TransferredToAgent,
			sess.LeadName, sess.LeadCity, sess.LeadState, sess.EstablishmentType,
			sess.OrderEstablishment, sess.OrderTaxID, sess.OrderProducts, sess.OrderDeliveryDate).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.UpdateSession(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateSessionNotFound(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(`(?s)UPDATE sessions.+WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.UpdateSession(context.Background(), &models.Session{ID: 99})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresAppendMessageAssignsSeq(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO messages.+COALESCE\(MAX\(seq\), 0\) \+ 1`).
		WithArgs(int64(4), models.SenderCustomer, "oi", models.KindText).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seq", "created_at"}).AddRow(int64(11), 3, now))

	msg := &models.Message{SessionID: 4, Sender: models.SenderCustomer, Content: "oi"}
	require.NoError(t, p.AppendMessage(context.Background(), msg))

	assert.Equal(t, int64(11), msg.ID)
	assert.Equal(t, 3, msg.Seq)
	assert.Equal(t, models.KindText, msg.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMessagesBySession(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "session_id", "sender", "content", "kind", "seq", "created_at"}).
		AddRow(int64(1), int64(4), models.SenderBot, "Olá!", models.KindMenu, 1, now).
		AddRow(int64(2), int64(4), models.SenderCustomer, "sim", models.KindText, 2, now)
	mock.ExpectQuery(`(?s)SELECT .+ FROM messages.+ORDER BY seq ASC`).
		WithArgs(int64(4)).
		WillReturnRows(rows)

	msgs, err := p.MessagesBySession(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderBot, msgs[0].Sender)
	assert.Equal(t, 2, msgs[1].Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresActiveKnowledge(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "category", "question", "answer", "keywords", "is_active", "created_at", "updated_at"}).
		AddRow(int64(1), "entrega", "Qual o prazo de entrega?", "Até 48h na região de Campinas.", "prazo,entrega", true, now, now)
	mock.ExpectQuery(`(?s)SELECT .+ FROM knowledge_base.+WHERE is_active = TRUE`).
		WillReturnRows(rows)

	entries, err := p.ActiveKnowledge(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Qual o prazo de entrega?", entries[0].Question)
	assert.NoError(t, mock.ExpectationsWereMet())
}
