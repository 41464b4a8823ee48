// Package lexicon holds the versioned keyword tables the engine matches
// customer utterances against: affirmative/negative answers, category
// keywords, establishment types and the non-product word list used by the
// order extractor. The tables ship embedded and are validated against a
// JSON schema at load time so a bad edit fails fast instead of silently
// misclassifying conversations.
package lexicon

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"chatbot-engine/internal/models"
)

//go:embed tables.json
var rawTables []byte

//go:embed schema.json
var rawSchema []byte

// CategoryRule maps a keyword to a conversation category.
type CategoryRule struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
}

// EstablishmentRule maps a keyword to an establishment type.
type EstablishmentRule struct {
	Pattern string `json:"pattern"`
	Type    string `json:"type"`
}

// Tables is the loaded lexicon. Rule slices keep their declaration order;
// matching always takes the first hit.
type Tables struct {
	Version            string              `json:"version"`
	Affirmative        []string            `json:"affirmative"`
	Negative           []string            `json:"negative"`
	CategoryKeywords   []CategoryRule      `json:"categoryKeywords"`
	EstablishmentTypes []EstablishmentRule `json:"establishmentTypes"`
	NonProductKeywords []string            `json:"nonProductKeywords"`
}

// Load validates the embedded tables against the schema and decodes them.
func Load() (*Tables, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(rawSchema),
		gojsonschema.NewBytesLoader(rawTables),
	)
	if err != nil {
		return nil, fmt.Errorf("validate lexicon tables: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("invalid lexicon tables: %s", strings.Join(problems, "; "))
	}

	var t Tables
	if err := json.Unmarshal(rawTables, &t); err != nil {
		return nil, fmt.Errorf("decode lexicon tables: %w", err)
	}
	return &t, nil
}

// MustLoad is Load for wiring paths where the embedded tables are known good.
func MustLoad() *Tables {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// matches reports whether the utterance hits any entry. Single-character
// digit entries ("1", "2", "3") only match the whole trimmed utterance so a
// quantity like "20 caixas" is not read as a menu choice.
func matches(utterance string, entries []string) bool {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	for _, entry := range entries {
		if len(entry) == 1 {
			if lowered == entry {
				return true
			}
			continue
		}
		if strings.Contains(lowered, entry) {
			return true
		}
	}
	return false
}

// MatchesAffirmative reports whether the utterance reads as a "yes".
func (t *Tables) MatchesAffirmative(utterance string) bool {
	return matches(utterance, t.Affirmative)
}

// MatchesNegative reports whether the utterance reads as a "no".
func (t *Tables) MatchesNegative(utterance string) bool {
	return matches(utterance, t.Negative)
}

// CategoryFor returns the first category whose keyword appears in the
// utterance. Rule order is the precedence order.
func (t *Tables) CategoryFor(utterance string) (models.Category, bool) {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	for _, rule := range t.CategoryKeywords {
		if len(rule.Pattern) == 1 {
			if lowered == rule.Pattern {
				return models.Category(rule.Category), true
			}
			continue
		}
		if strings.Contains(lowered, rule.Pattern) {
			return models.Category(rule.Category), true
		}
	}
	return models.CategoryUnknown, false
}

// EstablishmentFor returns the first establishment type whose keyword
// appears in the utterance.
func (t *Tables) EstablishmentFor(utterance string) (models.EstablishmentType, bool) {
	lowered := strings.ToLower(utterance)
	for _, rule := range t.EstablishmentTypes {
		if strings.Contains(lowered, rule.Pattern) {
			return models.EstablishmentType(rule.Type), true
		}
	}
	return "", false
}

// ContainsNonProduct reports whether the text carries a word that marks it
// as something other than a product list (a tax id, a name exchange, an
// agent mention).
func (t *Tables) ContainsNonProduct(text string) bool {
	lowered := strings.ToLower(text)
	for _, word := range t.NonProductKeywords {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}
