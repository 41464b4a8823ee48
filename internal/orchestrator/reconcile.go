package orchestrator

import (
	"chatbot-engine/internal/engine/extraction"
	"chatbot-engine/internal/models"
)

// Reconciliation merges extracted facts into the session without ever
// replacing a populated field: the first extracted value wins for the
// lifetime of the session, and re-running extraction over the same turns is
// a no-op.

func mergeLeadFacts(sess *models.Session, facts extraction.LeadFacts) {
	if sess.LeadName == "" && facts.Name != "" {
		sess.LeadName = facts.Name
	}
	if sess.LeadCity == "" && facts.City != "" {
		sess.LeadCity = facts.City
	}
	if sess.LeadState == "" && facts.State != "" {
		sess.LeadState = facts.State
	}
	if sess.EstablishmentType == "" && models.ValidEstablishmentType(facts.Establishment) {
		sess.EstablishmentType = facts.Establishment
	}
}

func mergeOrderFacts(sess *models.Session, facts extraction.OrderFacts) {
	if sess.OrderEstablishment == "" && facts.Establishment != "" {
		sess.OrderEstablishment = facts.Establishment
	}
	if sess.OrderTaxID == "" && facts.TaxID != "" {
		sess.OrderTaxID = facts.TaxID
	}
	if sess.OrderProducts == "" && facts.Products != "" {
		sess.OrderProducts = facts.Products
	}
	if sess.OrderDeliveryDate == "" && facts.DeliveryDate != "" {
		sess.OrderDeliveryDate = facts.DeliveryDate
	}
}

// assignCategory writes the category only while it is still unknown.
func assignCategory(sess *models.Session, c models.Category) {
	if (sess.Category == models.CategoryUnknown || sess.Category == "") && c != models.CategoryUnknown {
		sess.Category = c
	}
}
