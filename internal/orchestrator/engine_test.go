package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/engine/directive"
	"chatbot-engine/internal/gateway"
	"chatbot-engine/internal/models"
	"chatbot-engine/internal/notify"
	"chatbot-engine/internal/store"
)

type fakeGateway struct {
	reply       string
	err         error
	calls       int
	lastPrompt  string
	lastHistory []gateway.Turn
}

func (f *fakeGateway) Complete(_ context.Context, systemPrompt string, history []gateway.Turn) (string, error) {
	f.calls++
	f.lastPrompt = systemPrompt
	f.lastHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeNotifier struct {
	calls []*models.Session
}

func (f *fakeNotifier) NotifyTransfer(_ context.Context, sess *models.Session) error {
	f.calls = append(f.calls, sess)
	return nil
}

var _ notify.Notifier = (*fakeNotifier)(nil)

func newTestEngine(t *testing.T, gw gateway.CompletionGateway) (*Orchestrator, *store.Memory, *fakeNotifier) {
	mem := store.NewMemory()
	notifier := &fakeNotifier{}
	eng := New(Config{}, Deps{
		Store:    mem,
		Gateway:  gw,
		Notifier: notifier,
		Logger:   logger.NewTestLogger(t),
	})
	return eng, mem, notifier
}

func TestStartSession(t *testing.T) {
	eng, mem, _ := newTestEngine(t, &fakeGateway{})
	ctx := context.Background()

	sess, welcome, err := eng.StartSession(ctx, "", "Padaria Teste")
	require.NoError(t, err)

	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, models.CustomerUnknown, sess.CustomerType)
	assert.Equal(t, models.CategoryUnknown, sess.Category)
	assert.Equal(t, models.StatusActive, sess.Status)

	assert.Equal(t, models.SenderBot, welcome.Sender)
	assert.Equal(t, models.KindMenu, welcome.Kind)
	assert.Contains(t, welcome.Content, "já é cliente")

	msgs, err := mem.MessagesBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].Seq)
}

func TestExistingCustomerOrderFlow(t *testing.T) {
	gw := &fakeGateway{reply: "nunca deveria ser chamado"}
	eng, mem, notifier := newTestEngine(t, gw)
	ctx := context.Background()

	sess, _, err := eng.StartSession(ctx, "tok-order", "")
	require.NoError(t, err)

	// "sim" at the welcome question classifies and shows the menu.
	res, err := eng.SubmitUtterance(ctx, "tok-order", "sim")
	require.NoError(t, err)
	assert.True(t, res.Scripted)
	assert.Equal(t, models.CustomerExisting, res.Session.CustomerType)
	assert.Contains(t, strings.ToLower(res.Reply.Content), "pedido")

	// "pedido" starts the guided order flow.
	res, err = eng.SubmitUtterance(ctx, "tok-order", "pedido")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOrder, res.Session.Category)
	assert.Contains(t, strings.ToLower(res.Reply.Content), "cnpj")

	res, err = eng.SubmitUtterance(ctx, "tok-order", "Padaria Teste LTDA")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(res.Reply.Content), "produto")

	res, err = eng.SubmitUtterance(ctx, "tok-order", "2 croissant g, 3 pão de queijo, 5 baguete")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(res.Reply.Content), "data")

	// The delivery date closes the order.
	res, err = eng.SubmitUtterance(ctx, "tok-order", "dia 20/02 às 08:00")
	require.NoError(t, err)
	assert.Equal(t, directive.OrderComplete, res.Directive)
	assert.Contains(t, res.Reply.Content, "RESUMO DO PEDIDO")
	assert.Contains(t, res.Reply.Content, "Padaria Teste LTDA")
	assert.Contains(t, res.Reply.Content, "2 croissant g, 3 pão de queijo, 5 baguete")
	assert.Contains(t, res.Reply.Content, "20/02")
	assert.Contains(t, res.Reply.Content, "Maria Luiza")

	final := res.Session
	assert.Equal(t, "Padaria Teste LTDA", final.OrderEstablishment)
	assert.Equal(t, "2 croissant g, 3 pão de queijo, 5 baguete", final.OrderProducts)
	assert.Equal(t, "20/02", final.OrderDeliveryDate)
	assert.Equal(t, models.StatusTransferred, final.Status)
	assert.True(t, final.TransferredToAgent)

	// The whole flow is deterministic: the completion gateway never ran.
	assert.Zero(t, gw.calls)
	require.Len(t, notifier.calls, 1)

	// Exactly one customer and one bot message per turn, strictly ordered.
	msgs, err := mem.MessagesBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 11)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.Seq)
		if i == 0 {
			continue
		}
		expected := models.SenderCustomer
		if i%2 == 0 {
			expected = models.SenderBot
		}
		assert.Equal(t, expected, m.Sender, "message %d", i)
	}
}

func TestProspectQualificationFlow(t *testing.T) {
	gw := &fakeGateway{}
	eng, _, _ := newTestEngine(t, gw)
	ctx := context.Background()

	_, _, err := eng.StartSession(ctx, "tok-lead", "")
	require.NoError(t, err)

	res, err := eng.SubmitUtterance(ctx, "tok-lead", "não")
	require.NoError(t, err)
	assert.Equal(t, models.CustomerProspect, res.Session.CustomerType)
	assert.Contains(t, strings.ToLower(res.Reply.Content), "nome")

	res, err = eng.SubmitUtterance(ctx, "tok-lead", "João Pedro")
	require.NoError(t, err)
	assert.Contains(t, res.Reply.Content, "Cidade - Estado")

	res, err = eng.SubmitUtterance(ctx, "tok-lead", "Campinas - SP")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(res.Reply.Content), "estabelecimento")

	res, err = eng.SubmitUtterance(ctx, "tok-lead", "padaria")
	require.NoError(t, err)
	assert.Equal(t, directive.QualificationComplete, res.Directive)

	final := res.Session
	assert.Equal(t, "João Pedro", final.LeadName)
	assert.Equal(t, "Campinas", final.LeadCity)
	assert.Equal(t, "SP", final.LeadState)
	assert.Equal(t, models.EstablishmentBakery, final.EstablishmentType)
	assert.Equal(t, models.CategoryInformation, final.Category)
	assert.Equal(t, models.StatusActive, final.Status)

	assert.Zero(t, gw.calls)
}

func TestCatalogDirectiveFromCompletion(t *testing.T) {
	gw := &fakeGateway{reply: "Claro, aqui está! ENVIAR_CATALOGO"}
	eng, mem, _ := newTestEngine(t, gw)
	ctx := context.Background()

	mem.Catalogs = []models.Catalog{
		{Name: "Catálogo Bridor 2026", FileURL: "https://files.example.com/catalogo.pdf", IsActive: true},
		{Name: "Linha antiga", IsActive: false},
	}

	_, _, err := eng.StartSession(ctx, "tok-cat", "")
	require.NoError(t, err)
	_, err = eng.SubmitUtterance(ctx, "tok-cat", "sim")
	require.NoError(t, err)

	res, err := eng.SubmitUtterance(ctx, "tok-cat", "vocês têm material dos produtos?")
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, directive.SendCatalog, res.Directive)
	assert.Equal(t, models.KindCatalog, res.Reply.Kind)
	assert.Contains(t, res.Reply.Content, "Catálogo Bridor 2026")
	assert.Contains(t, res.Reply.Content, "https://files.example.com/catalogo.pdf")
	assert.NotContains(t, res.Reply.Content, "ENVIAR_CATALOGO")
	assert.NotContains(t, res.Reply.Content, "Linha antiga")
	// The listing replaces the model's own text entirely.
	assert.NotContains(t, res.Reply.Content, "Claro, aqui está!")
	assert.Equal(t, models.CategoryCatalog, res.Session.Category)

	// The system prompt carries the marker contract.
	assert.Contains(t, gw.lastPrompt, "ENVIAR_CATALOGO")
	require.NotEmpty(t, gw.lastHistory)
	last := gw.lastHistory[len(gw.lastHistory)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "vocês têm material dos produtos?", last.Content)
}

func TestCatalogDirectiveWithoutCatalogs(t *testing.T) {
	gw := &fakeGateway{reply: "ENVIAR_CATALOGO"}
	eng, _, _ := newTestEngine(t, gw)
	ctx := context.Background()

	_, _, err := eng.StartSession(ctx, "tok-nocat", "")
	require.NoError(t, err)
	_, err = eng.SubmitUtterance(ctx, "tok-nocat", "sim")
	require.NoError(t, err)

	res, err := eng.SubmitUtterance(ctx, "tok-nocat", "quero ver os produtos de vocês")
	require.NoError(t, err)
	assert.Equal(t, directive.SendCatalog, res.Directive)
	assert.Contains(t, res.Reply.Content, "atendente")
}

func TestMenuAgentOptionTransfers(t *testing.T) {
	gw := &fakeGateway{}
	eng, _, notifier := newTestEngine(t, gw)
	ctx := context.Background()

	_, _, err := eng.StartSession(ctx, "tok-agent", "")
	require.NoError(t, err)
	_, err = eng.SubmitUtterance(ctx, "tok-agent", "sim")
	require.NoError(t, err)

	res, err := eng.SubmitUtterance(ctx, "tok-agent", "assistente")
	require.NoError(t, err)
	assert.Equal(t, directive.TransferAgent, res.Directive)
	assert.Equal(t, transferReply, res.Reply.Content)
	assert.Equal(t, models.KindSystem, res.Reply.Kind)
	assert.Equal(t, models.StatusTransferred, res.Session.Status)
	assert.Equal(t, models.CategoryOrder, res.Session.Category)
	require.Len(t, notifier.calls, 1)
	assert.Zero(t, gw.calls)

	// Once transferred, turns only queue behind the agent.
	res, err = eng.SubmitUtterance(ctx, "tok-agent", "ainda está aí?")
	require.NoError(t, err)
	assert.Equal(t, directive.None, res.Directive)
	assert.Equal(t, models.KindSystem, res.Reply.Kind)
	assert.Contains(t, res.Reply.Content, "Maria Luiza")
	assert.Zero(t, gw.calls)
	assert.Len(t, notifier.calls, 1, "queue turns do not re-notify")
}

func TestTransferDirectiveFromCompletion(t *testing.T) {
	gw := &fakeGateway{reply: "Texto livre do modelo. TRANSFERIR_ATENDENTE"}
	eng, _, notifier := newTestEngine(t, gw)
	ctx := context.Background()

	_, _, err := eng.StartSession(ctx, "tok-handoff", "")
	require.NoError(t, err)
	_, err = eng.SubmitUtterance(ctx, "tok-handoff", "sim")
	require.NoError(t, err)

	res, err := eng.SubmitUtterance(ctx, "tok-handoff", "preciso de ajuda com uma entrega que atrasou")
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, directive.TransferAgent, res.Directive)

	// The canned notice replaces the model's text wholesale.
	assert.Equal(t, transferReply, res.Reply.Content)
	assert.NotContains(t, res.Reply.Content, "Texto livre do modelo")
	assert.Equal(t, models.KindSystem, res.Reply.Kind)

	assert.Equal(t, models.StatusTransferred, res.Session.Status)
	assert.True(t, res.Session.TransferredToAgent)
	assert.Equal(t, models.CategoryOrder, res.Session.Category)
	require.Len(t, notifier.calls, 1)
}

func TestCompletionFailureFailsClosed(t *testing.T) {
	gw := &fakeGateway{err: apperrors.NewCompletionFailedError("provider down")}
	eng, _, _ := newTestEngine(t, gw)
	ctx := context.Background()

	_, _, err := eng.StartSession(ctx, "tok-fail", "")
	require.NoError(t, err)
	before, err := eng.SubmitUtterance(ctx, "tok-fail", "sim")
	require.NoError(t, err)

	res, err := eng.SubmitUtterance(ctx, "tok-fail", "qual o preço do croissant?")
	require.NoError(t, err, "a failed completion degrades, it does not error the turn")

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, directive.None, res.Directive)
	assert.Equal(t, apologyReply, res.Reply.Content)

	// No session state advanced on the failed turn.
	assert.Equal(t, before.Session.Category, res.Session.Category)
	assert.Equal(t, before.Session.Status, res.Session.Status)
}

func TestLazySessionCreation(t *testing.T) {
	gw := &fakeGateway{}
	eng, mem, _ := newTestEngine(t, gw)
	ctx := context.Background()

	res, err := eng.SubmitUtterance(ctx, "tok-unseen", "oi")
	require.NoError(t, err)

	assert.True(t, res.Scripted)
	assert.Contains(t, res.Reply.Content, "Bem-vindo")
	assert.Equal(t, models.CustomerUnknown, res.Session.CustomerType)
	assert.Zero(t, gw.calls)

	sess, err := mem.SessionByToken(ctx, "tok-unseen")
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, sess.ID)
}

func TestSubmitUtteranceValidation(t *testing.T) {
	eng, _, _ := newTestEngine(t, &fakeGateway{})
	ctx := context.Background()

	_, err := eng.SubmitUtterance(ctx, "   ", "oi")
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeInvalidSessionToken, stdErr.Code)

	_, err = eng.SubmitUtterance(ctx, "tok", "   ")
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeEmptyUtterance, stdErr.Code)
}

type brokenStore struct {
	*store.Memory
}

func (b *brokenStore) SessionByToken(context.Context, string) (*models.Session, error) {
	return nil, errors.New("connection reset by peer")
}

func TestStoreReadFailureSurfacesTaxonomy(t *testing.T) {
	eng := New(Config{}, Deps{
		Store:   &brokenStore{store.NewMemory()},
		Gateway: &fakeGateway{},
		Logger:  logger.NewTestLogger(t),
	})

	_, err := eng.SubmitUtterance(context.Background(), "tok-broken", "oi")
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeStoreReadFailed, stdErr.Code)
}

func TestClassificationIsOneWay(t *testing.T) {
	gw := &fakeGateway{reply: "Entendi!"}
	eng, _, _ := newTestEngine(t, gw)
	ctx := context.Background()

	_, _, err := eng.StartSession(ctx, "tok-oneway", "")
	require.NoError(t, err)
	res, err := eng.SubmitUtterance(ctx, "tok-oneway", "sim")
	require.NoError(t, err)
	require.Equal(t, models.CustomerExisting, res.Session.CustomerType)

	// A later "não" never reclassifies.
	res, err = eng.SubmitUtterance(ctx, "tok-oneway", "não, obrigado")
	require.NoError(t, err)
	assert.Equal(t, models.CustomerExisting, res.Session.CustomerType)
}
