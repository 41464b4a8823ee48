package orchestrator

import (
	"fmt"
	"strings"

	"chatbot-engine/internal/engine/extraction"
	"chatbot-engine/internal/models"
)

// agentName is the human attendant conversations are handed to.
const agentName = "Maria Luiza"

const apologyReply = "Desculpe, estou com uma dificuldade técnica no momento. 🙏\n\n" +
	"Pode tentar novamente em alguns instantes?"

const transferReply = "Estou transferindo você para nossa atendente " + agentName +
	", que vai continuar o atendimento por aqui. 💁‍♀️\n\nSó um instante!"

const queueReply = "Sua conversa já está com a nossa equipe! A atendente " + agentName +
	" vai continuar o atendimento por aqui. 🙌"

const catalogMissReply = "Poxa, não encontrei nenhum catálogo disponível agora. 😔\n\n" +
	"Quer falar com a nossa atendente " + agentName + "? É só digitar *atendente*."

// catalogReply lists the active catalogs with their download links.
func catalogReply(catalogs []models.Catalog) string {
	var b strings.Builder
	b.WriteString("Aqui está o nosso material! 📚\n")
	for _, c := range catalogs {
		b.WriteString("\n• *")
		b.WriteString(c.Name)
		b.WriteString("*")
		if c.Description != "" {
			b.WriteString(" — ")
			b.WriteString(c.Description)
		}
		if c.FileURL != "" {
			b.WriteString("\n  ")
			b.WriteString(c.FileURL)
		}
	}
	b.WriteString("\n\nQualquer dúvida sobre os produtos, é só perguntar!")
	return b.String()
}

// orderSummary renders the closing recap of a guided order. When nothing
// structured was recovered it falls back to the customer's own words so the
// attendant still sees the request.
func orderSummary(sess *models.Session, facts extraction.OrderFacts) string {
	var b strings.Builder
	b.WriteString("📋 *RESUMO DO PEDIDO*\n")

	switch {
	case sess.OrderEstablishment != "":
		fmt.Fprintf(&b, "\nEstabelecimento: %s", sess.OrderEstablishment)
	case sess.OrderTaxID != "":
		fmt.Fprintf(&b, "\nCNPJ: %s", sess.OrderTaxID)
	}
	if sess.OrderProducts != "" {
		fmt.Fprintf(&b, "\nProdutos: %s", sess.OrderProducts)
	}
	if sess.OrderDeliveryDate != "" {
		fmt.Fprintf(&b, "\nData de entrega: %s", sess.OrderDeliveryDate)
	}
	if sess.OrderEstablishment == "" && sess.OrderTaxID == "" &&
		sess.OrderProducts == "" && sess.OrderDeliveryDate == "" && facts.RawFallback != "" {
		fmt.Fprintf(&b, "\nPedido: %s", facts.RawFallback)
	}

	b.WriteString("\n\nRecebemos o seu pedido! 🎉 Nossa atendente " + agentName +
		" vai confirmar os detalhes e o prazo de entrega com você por aqui.")
	return b.String()
}

const qualificationFallbackReply = "Obrigado! Já registrei suas informações e em breve " +
	"nossa equipe comercial entrará em contato. 🙌"
