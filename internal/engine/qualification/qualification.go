// Package qualification classifies who the customer is and why they are
// talking to us. Both classifications are one-way: once a session leaves
// "unknown" no utterance moves it again.
package qualification

import (
	"chatbot-engine/internal/engine/lexicon"
	"chatbot-engine/internal/models"
)

// Machine applies the classification rules over the lexicon tables.
type Machine struct {
	lex *lexicon.Tables
}

func NewMachine(lex *lexicon.Tables) *Machine {
	return &Machine{lex: lex}
}

// NextCustomerType returns the customer classification after the utterance.
// An affirmative answer marks an existing customer, a negative one a
// prospect. When the utterance reads as both, affirmative wins. Anything
// already classified passes through unchanged.
func (m *Machine) NextCustomerType(current models.CustomerType, utterance string) models.CustomerType {
	if current != models.CustomerUnknown && current != "" {
		return current
	}
	if m.lex.MatchesAffirmative(utterance) {
		return models.CustomerExisting
	}
	if m.lex.MatchesNegative(utterance) {
		return models.CustomerProspect
	}
	return models.CustomerUnknown
}

// FallbackCategory returns the conversation category after a turn where no
// directive fired. Keyword classification only runs while the category is
// still unknown.
func (m *Machine) FallbackCategory(current models.Category, utterance string) models.Category {
	if current != models.CategoryUnknown && current != "" {
		return current
	}
	if category, ok := m.lex.CategoryFor(utterance); ok {
		return category
	}
	return models.CategoryUnknown
}
