package orchestrator

import (
	"strings"

	"chatbot-engine/internal/engine/directive"
	"chatbot-engine/internal/gateway"
	"chatbot-engine/internal/models"
)

// buildSystemPrompt assembles the persona, the control-marker contract and
// the active knowledge base into one system message.
func buildSystemPrompt(knowledge []models.KnowledgeEntry) string {
	var b strings.Builder

	b.WriteString("Você é o assistente virtual da Bridor, distribuidora de panificação congelada ")
	b.WriteString("para food service no Brasil. Atenda sempre em português brasileiro, de forma ")
	b.WriteString("simpática, objetiva e profissional.\n\n")

	b.WriteString("Regras de controle — acrescente o marcador EXATO ao final da resposta quando a situação ocorrer:\n")
	b.WriteString("- " + directive.MarkerQualification + ": quando terminar de coletar nome, cidade/estado e tipo de estabelecimento de um novo contato.\n")
	b.WriteString("- " + directive.MarkerCatalog + ": quando o cliente pedir o catálogo de produtos.\n")
	b.WriteString("- " + directive.MarkerOrder + ": quando o cliente confirmar um pedido com produtos e data de entrega.\n")
	b.WriteString("- " + directive.MarkerTransfer + ": quando o cliente pedir para falar com um atendente humano ou quando você não conseguir ajudar.\n")
	b.WriteString("Nunca explique os marcadores ao cliente.\n")

	if len(knowledge) > 0 {
		b.WriteString("\nBase de conhecimento:\n")
		for _, k := range knowledge {
			b.WriteString("\nP: ")
			b.WriteString(k.Question)
			b.WriteString("\nR: ")
			b.WriteString(k.Answer)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// buildHistory maps the most recent messages into gateway turns, oldest
// first, ending with the customer utterance that triggered this turn.
func buildHistory(msgs []models.Message, maxTurns int) []gateway.Turn {
	if maxTurns > 0 && len(msgs) > maxTurns {
		msgs = msgs[len(msgs)-maxTurns:]
	}

	turns := make([]gateway.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := "assistant"
		if m.Sender == models.SenderCustomer {
			role = "user"
		}
		turns = append(turns, gateway.Turn{Role: role, Content: m.Content})
	}
	return turns
}
