// Package script drives the deterministic parts of the conversation: the
// welcome question, the prospect qualification interview and the guided
// order flow. Each step is keyed on the last scripted prompt the bot sent,
// so the controller is stateless beyond the session itself.
//
// Scripted replies may end in a control marker; they flow through the same
// directive interpreter as completion output. When no scripted step applies
// the turn falls through to the completion gateway.
package script

import (
	"strings"

	"chatbot-engine/internal/engine/directive"
	"chatbot-engine/internal/engine/lexicon"
	"chatbot-engine/internal/models"
)

// Prompt IDs, used to key the next step on the last bot message.
const (
	StepWelcome         = "welcome"
	StepCustomerMenu    = "customer_menu"
	StepAskName         = "ask_name"
	StepAskCityState    = "ask_city_state"
	StepAskEstablish    = "ask_establishment_type"
	StepAskOrderOrigin  = "ask_order_origin"
	StepAskProducts     = "ask_products"
	StepAskDeliveryDate = "ask_delivery_date"
)

// prompts holds the exact text of every scripted bot message. Step matching
// compares the stored message content against these strings, so they must
// not be interpolated.
var prompts = map[string]string{
	StepWelcome: "Olá! Bem-vindo à Bridor! 🥐\n\n" +
		"Sou o assistente virtual e estou aqui para ajudar.\n\n" +
		"Antes de começarmos: você já é cliente da Bridor?\n\n" +
		"Responda *sim* ou *não*.",

	StepCustomerMenu: "Que bom ter você de volta! 😊\n\n" +
		"Como posso ajudar hoje?\n\n" +
		"1️⃣ Fazer um pedido\n" +
		"2️⃣ Falar com o assistente\n\n" +
		"Digite *pedido* ou *assistente*.",

	StepAskName: "Que ótimo ter você por aqui! 🤝\n\n" +
		"Para começarmos, qual é o seu nome?",

	StepAskCityState: "Prazer em conhecer você!\n\n" +
		"De onde você fala? Digite no formato Cidade - Estado (ex: Campinas - SP).",

	StepAskEstablish: "Perfeito! E qual é o tipo do seu estabelecimento?\n\n" +
		"Supermercado, cafeteria, padaria/confeitaria, buffet, catering, distribuidor ou representante?",

	StepAskOrderOrigin: "Perfeito, vamos registrar seu pedido! 📝\n\n" +
		"Qual é o nome do estabelecimento ou o CNPJ?",

	StepAskProducts: "Anotado!\n\n" +
		"Agora me diga quais produtos você deseja e as quantidades (ex: 2 croissant g, 3 pão de queijo).",

	StepAskDeliveryDate: "Ótimo! 📦\n\n" +
		"Para qual data você precisa da entrega?",
}

// kinds marks the scripted prompts that render as menus.
var kinds = map[string]models.MessageKind{
	StepWelcome:      models.KindMenu,
	StepCustomerMenu: models.KindMenu,
}

// Text returns the scripted prompt for a step.
func Text(step string) string {
	return prompts[step]
}

// Kind returns the message kind a scripted step renders as.
func Kind(step string) models.MessageKind {
	if k, ok := kinds[step]; ok {
		return k
	}
	return models.KindText
}

// Welcome is the opening message of every session.
func Welcome() (text string, kind models.MessageKind) {
	return prompts[StepWelcome], kinds[StepWelcome]
}

// stepOf maps a stored bot message back to its scripted step.
func stepOf(content string) (string, bool) {
	for step, text := range prompts {
		if content == text {
			return step, true
		}
	}
	return "", false
}

// Reply is a scripted response to a customer turn.
type Reply struct {
	// Raw is the reply text, possibly carrying a directive marker. It goes
	// through directive.Interpret like completion output.
	Raw  string
	Kind models.MessageKind
}

// Next decides whether the scripted flows handle this turn. lastBot is the
// most recent bot message of the session, nil when the customer somehow
// speaks first. Returns false when the turn belongs to the completion
// gateway.
func Next(sess *models.Session, lastBot *models.Message, utterance string, lex *lexicon.Tables) (Reply, bool) {
	step := ""
	if lastBot != nil {
		step, _ = stepOf(lastBot.Content)
	}

	// Qualification interview.
	switch step {
	case StepWelcome:
		if sess.CustomerType == models.CustomerUnknown || sess.CustomerType == "" {
			if lex.MatchesAffirmative(utterance) {
				return scripted(StepCustomerMenu), true
			}
			if lex.MatchesNegative(utterance) {
				return scripted(StepAskName), true
			}
		}
		return Reply{}, false
	case StepAskName:
		return scripted(StepAskCityState), true
	case StepAskCityState:
		return scripted(StepAskEstablish), true
	case StepAskEstablish:
		return Reply{
			Raw: "Obrigado! Já registrei suas informações e em breve nossa equipe comercial " +
				"entrará em contato. 🙌 " + directive.MarkerQualification,
			Kind: models.KindText,
		}, true
	}

	// Guided order flow.
	switch step {
	case StepCustomerMenu:
		if wantsAgent(utterance) {
			return Reply{
				Raw:  "Claro! " + directive.MarkerTransfer,
				Kind: models.KindText,
			}, true
		}
		// "pedido" falls through to the wantsOrder check below.
	case StepAskOrderOrigin:
		return scripted(StepAskProducts), true
	case StepAskProducts:
		return scripted(StepAskDeliveryDate), true
	case StepAskDeliveryDate:
		return Reply{Raw: directive.MarkerOrder, Kind: models.KindText}, true
	}

	// An existing customer asking for an order outside the menu still enters
	// the guided flow.
	if sess.CustomerType == models.CustomerExisting && wantsOrder(utterance, lex) {
		return scripted(StepAskOrderOrigin), true
	}

	return Reply{}, false
}

func scripted(step string) Reply {
	return Reply{Raw: prompts[step], Kind: Kind(step)}
}

// wantsOrder reports whether the utterance picks the order option, by
// keyword or by menu number.
func wantsOrder(utterance string, lex *lexicon.Tables) bool {
	if strings.TrimSpace(utterance) == "1" {
		return true
	}
	category, ok := lex.CategoryFor(utterance)
	return ok && category == models.CategoryOrder
}

// wantsAgent reports whether the utterance picks the human-agent option of
// the customer menu.
func wantsAgent(utterance string) bool {
	trimmed := strings.TrimSpace(utterance)
	return trimmed == "2" || strings.Contains(strings.ToLower(trimmed), "assistente") ||
		strings.Contains(strings.ToLower(trimmed), "atendente")
}
