package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-engine/internal/engine/directive"
	"chatbot-engine/internal/engine/lexicon"
	"chatbot-engine/internal/models"
)

func botMsg(step string) *models.Message {
	return &models.Message{Sender: models.SenderBot, Content: Text(step)}
}

func TestWelcome(t *testing.T) {
	text, kind := Welcome()
	assert.Contains(t, text, "Bem-vindo")
	assert.Contains(t, text, "já é cliente")
	assert.Contains(t, strings.ToLower(text), "sim")
	assert.Contains(t, strings.ToLower(text), "não")
	assert.Equal(t, models.KindMenu, kind)
}

func TestNextQualificationInterview(t *testing.T) {
	lex := lexicon.MustLoad()
	sess := &models.Session{CustomerType: models.CustomerUnknown}

	// Yes at the welcome question leads to the customer menu.
	reply, ok := Next(sess, botMsg(StepWelcome), "sim", lex)
	require.True(t, ok)
	assert.Equal(t, Text(StepCustomerMenu), reply.Raw)
	assert.Equal(t, models.KindMenu, reply.Kind)
	assert.Contains(t, strings.ToLower(reply.Raw), "pedido")
	assert.Contains(t, strings.ToLower(reply.Raw), "assistente")

	// No leads into the prospect interview.
	reply, ok = Next(sess, botMsg(StepWelcome), "não", lex)
	require.True(t, ok)
	assert.Equal(t, Text(StepAskName), reply.Raw)

	reply, ok = Next(sess, botMsg(StepAskName), "João Pedro", lex)
	require.True(t, ok)
	assert.Contains(t, reply.Raw, "Cidade - Estado")

	reply, ok = Next(sess, botMsg(StepAskCityState), "Campinas - SP", lex)
	require.True(t, ok)
	assert.Contains(t, strings.ToLower(reply.Raw), "estabelecimento")

	// The last interview answer emits the qualification marker.
	reply, ok = Next(sess, botMsg(StepAskEstablish), "padaria", lex)
	require.True(t, ok)
	res := directive.Interpret(reply.Raw)
	assert.Equal(t, directive.QualificationComplete, res.Directive)
	assert.NotEmpty(t, res.Clean)
}

func TestNextWelcomeNeutralAnswerFallsThrough(t *testing.T) {
	lex := lexicon.MustLoad()
	sess := &models.Session{CustomerType: models.CustomerUnknown}

	_, ok := Next(sess, botMsg(StepWelcome), "quanto custa o croissant?", lex)
	assert.False(t, ok)
}

func TestNextOrderFlow(t *testing.T) {
	lex := lexicon.MustLoad()
	sess := &models.Session{CustomerType: models.CustomerExisting}

	// Picking "pedido" from the menu starts the guided flow.
	reply, ok := Next(sess, botMsg(StepCustomerMenu), "pedido", lex)
	require.True(t, ok)
	assert.Contains(t, strings.ToLower(reply.Raw), "estabelecimento")
	assert.Contains(t, strings.ToLower(reply.Raw), "cnpj")

	reply, ok = Next(sess, botMsg(StepAskOrderOrigin), "Padaria Teste LTDA", lex)
	require.True(t, ok)
	assert.Contains(t, strings.ToLower(reply.Raw), "produto")

	reply, ok = Next(sess, botMsg(StepAskProducts), "2 croissant g, 3 pão de queijo", lex)
	require.True(t, ok)
	assert.Contains(t, strings.ToLower(reply.Raw), "data")

	reply, ok = Next(sess, botMsg(StepAskDeliveryDate), "dia 20/02 às 08:00", lex)
	require.True(t, ok)
	res := directive.Interpret(reply.Raw)
	assert.Equal(t, directive.OrderComplete, res.Directive)
}

func TestNextOrderKeywordOutsideMenu(t *testing.T) {
	lex := lexicon.MustLoad()
	sess := &models.Session{CustomerType: models.CustomerExisting}

	reply, ok := Next(sess, nil, "quero fazer um pedido", lex)
	require.True(t, ok)
	assert.Equal(t, Text(StepAskOrderOrigin), reply.Raw)

	// Prospects do not enter the order flow.
	prospect := &models.Session{CustomerType: models.CustomerProspect}
	_, ok = Next(prospect, nil, "quero fazer um pedido", lex)
	assert.False(t, ok)
}

func TestNextMenuAgentOption(t *testing.T) {
	lex := lexicon.MustLoad()
	sess := &models.Session{CustomerType: models.CustomerExisting}

	for _, utterance := range []string{"assistente", "2", "falar com atendente"} {
		reply, ok := Next(sess, botMsg(StepCustomerMenu), utterance, lex)
		require.True(t, ok, utterance)
		res := directive.Interpret(reply.Raw)
		assert.Equal(t, directive.TransferAgent, res.Directive, utterance)
	}
}

func TestNextUnscriptedTurn(t *testing.T) {
	lex := lexicon.MustLoad()
	sess := &models.Session{CustomerType: models.CustomerExisting}

	free := &models.Message{Sender: models.SenderBot, Content: "O croissant custa R$ 4,50."}
	_, ok := Next(sess, free, "e o pain au chocolat?", lex)
	assert.False(t, ok)
}
