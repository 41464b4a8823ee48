// Package extraction pulls structured facts out of raw conversation turns.
// Everything here is a pure function over the customer's recent utterances:
// no I/O, no state, deterministic, so running it twice over the same turns
// yields the same facts.
package extraction

import (
	"regexp"
	"strings"

	"chatbot-engine/internal/engine/lexicon"
	"chatbot-engine/internal/models"
)

// OrderFacts is what the order flow could recover from the conversation.
// Empty fields mean the heuristic found nothing for them.
type OrderFacts struct {
	Establishment string
	TaxID         string
	Products      string
	DeliveryDate  string
	// RawFallback carries the last substantial customer turn when no
	// structured field could be recovered at all.
	RawFallback string
}

// Empty reports whether no structured field was recovered.
func (f OrderFacts) Empty() bool {
	return f.Establishment == "" && f.TaxID == "" && f.Products == "" && f.DeliveryDate == ""
}

// LeadFacts is what prospect qualification could recover.
type LeadFacts struct {
	Name          string
	City          string
	State         string
	Establishment models.EstablishmentType
}

var (
	fullDateRe  = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	shortDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}\b`)
	cnpjRe      = regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)
	bareCNPJRe  = regexp.MustCompile(`\b\d{14}\b`)
	// digit immediately starting an item ("2 croissant", "3x pão").
	quantityItemRe = regexp.MustCompile(`\d+\s*x?\s*\p{L}`)
)

var weekdays = []string{
	"segunda", "terça", "terca", "quarta", "quinta", "sexta",
	"sábado", "sabado", "domingo",
}

// identityWindow caps how deep into the order window the establishment/tax-id
// scan goes: identity comes up front, product lists come later.
const identityWindow = 3

// ExtractOrder recovers order facts from the customer turns of the order
// window, oldest first. Labeled fields win over free-form guesses, and for
// each field the first hit wins.
func ExtractOrder(turns []string, lex *lexicon.Tables) OrderFacts {
	var facts OrderFacts

	// Pass 1: explicitly labeled lines ("Produto: ...", "Data: ...").
	for _, turn := range turns {
		for _, line := range strings.Split(turn, "\n") {
			label, value, ok := splitLabeled(line)
			if !ok || value == "" {
				continue
			}
			switch {
			case strings.Contains(label, "produto"):
				if facts.Products == "" {
					facts.Products = value
				}
			case strings.Contains(label, "quantidade"):
				if facts.Products == "" {
					facts.Products = value
				} else if !strings.Contains(facts.Products, value) {
					facts.Products += ", " + value
				}
			case strings.Contains(label, "data") || strings.Contains(label, "entrega"):
				if facts.DeliveryDate == "" {
					facts.DeliveryDate = value
				}
			case strings.Contains(label, "cnpj"):
				if facts.TaxID == "" {
					facts.TaxID = value
				}
			case strings.Contains(label, "estabelecimento"):
				if facts.Establishment == "" {
					facts.Establishment = value
				}
			}
		}
	}

	// Pass 2: free-form dates, most specific form first.
	if facts.DeliveryDate == "" {
		facts.DeliveryDate = findDate(turns)
	}

	// Pass 3: product-list shaped turns.
	if facts.Products == "" {
		for _, turn := range turns {
			if looksLikeProductList(turn, lex) {
				facts.Products = strings.TrimSpace(turn)
				break
			}
		}
	}

	// Pass 4: identity from the opening turns. A tax id anywhere in the
	// window beats an establishment-name guess.
	window := turns
	if len(window) > identityWindow {
		window = window[:identityWindow]
	}
	if facts.TaxID == "" {
		for _, turn := range window {
			if id := findTaxID(turn); id != "" {
				facts.TaxID = id
				break
			}
		}
	}
	if facts.TaxID == "" && facts.Establishment == "" {
		for _, turn := range window {
			if looksLikeEstablishmentName(turn, lex) {
				facts.Establishment = strings.TrimSpace(turn)
				break
			}
		}
	}

	if facts.Empty() {
		for i := len(turns) - 1; i >= 0; i-- {
			if trimmed := strings.TrimSpace(turns[i]); len([]rune(trimmed)) >= 10 {
				facts.RawFallback = trimmed
				break
			}
		}
	}
	return facts
}

// ExtractLead recovers prospect qualification facts from the customer turns
// of the session, oldest first.
func ExtractLead(turns []string, lex *lexicon.Tables) LeadFacts {
	var facts LeadFacts

	// The name is the turn right after the customer said they are not a
	// customer yet, when it is short enough to be a name.
	for i, turn := range turns {
		if !lex.MatchesNegative(turn) || i+1 >= len(turns) {
			continue
		}
		candidate := strings.TrimSpace(turns[i+1])
		n := len([]rune(candidate))
		if n > 3 && n < 100 && !strings.Contains(candidate, "-") {
			facts.Name = candidate
		}
		break
	}

	// Location is the first "Cidade - Estado" shaped turn.
	for _, turn := range turns {
		if city, state, ok := splitLocation(turn); ok {
			facts.City = city
			facts.State = state
			break
		}
	}

	for _, turn := range turns {
		if est, ok := lex.EstablishmentFor(turn); ok {
			facts.Establishment = est
			break
		}
	}
	return facts
}

// splitLabeled breaks a "Label: value" line. The label side must stay short
// so a clock time or a URL is not mistaken for a label.
func splitLabeled(line string) (label, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	label = strings.ToLower(strings.TrimSpace(line[:idx]))
	if len([]rune(label)) > 30 || strings.ContainsAny(label, "0123456789") {
		return "", "", false
	}
	return label, strings.TrimSpace(line[idx+1:]), true
}

func findDate(turns []string) string {
	for _, turn := range turns {
		if m := fullDateRe.FindString(turn); m != "" {
			return m
		}
	}
	for _, turn := range turns {
		if m := shortDateRe.FindString(turn); m != "" {
			return m
		}
	}
	for _, turn := range turns {
		lowered := strings.ToLower(turn)
		if strings.Contains(lowered, "amanhã") || strings.Contains(lowered, "amanha") {
			return "amanhã"
		}
	}
	for _, turn := range turns {
		lowered := strings.ToLower(turn)
		for _, day := range weekdays {
			if strings.Contains(lowered, day) {
				return day
			}
		}
	}
	return ""
}

func findTaxID(turn string) string {
	if m := cnpjRe.FindString(turn); m != "" {
		return m
	}
	return bareCNPJRe.FindString(turn)
}

// looksLikeProductList accepts turns shaped like an order: bounded length,
// quantity-item pairs or a comma-separated enumeration, and none of the
// words that mark identity or routing talk.
func looksLikeProductList(turn string, lex *lexicon.Tables) bool {
	trimmed := strings.TrimSpace(turn)
	n := len([]rune(trimmed))
	if n < 10 || n > 500 {
		return false
	}
	if lex.ContainsNonProduct(trimmed) {
		return false
	}
	// A lone delivery-date turn ("dia 20/02 às 08:00") has quantity-like
	// digits but no enumeration.
	if shortDateRe.MatchString(trimmed) && !strings.Contains(trimmed, ",") {
		return false
	}
	return quantityItemRe.MatchString(trimmed) || strings.Contains(trimmed, ",")
}

// looksLikeEstablishmentName accepts a short opening turn that is neither a
// date nor a product list.
func looksLikeEstablishmentName(turn string, lex *lexicon.Tables) bool {
	trimmed := strings.TrimSpace(turn)
	n := len([]rune(trimmed))
	if n < 3 || n > 100 {
		return false
	}
	if fullDateRe.MatchString(trimmed) || shortDateRe.MatchString(trimmed) {
		return false
	}
	return !looksLikeProductList(trimmed, lex)
}

// splitLocation parses "Cidade - Estado". The left side must carry a letter
// so hyphenated numbers (a tax id tail) do not match.
func splitLocation(turn string) (city, state string, ok bool) {
	trimmed := strings.TrimSpace(turn)
	if len([]rune(trimmed)) > 80 || !strings.Contains(trimmed, "-") {
		return "", "", false
	}
	parts := strings.SplitN(trimmed, "-", 2)
	city = strings.TrimSpace(parts[0])
	state = strings.TrimSpace(parts[1])
	if city == "" || state == "" || !containsLetter(city) || !containsLetter(state) {
		return "", "", false
	}
	return city, state, true
}

func containsLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			return true
		}
	}
	return false
}
