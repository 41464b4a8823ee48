// Package directive interprets control markers embedded in completion
// output. Markers are plain uppercase tokens the model is instructed to
// append; the interpreter strips them before the text reaches the customer.
package directive

import "strings"

// Directive is a side-effect request found in completion output.
type Directive int

const (
	None Directive = iota
	QualificationComplete
	SendCatalog
	OrderComplete
	TransferAgent
)

func (d Directive) String() string {
	switch d {
	case QualificationComplete:
		return "qualification_complete"
	case SendCatalog:
		return "send_catalog"
	case OrderComplete:
		return "order_complete"
	case TransferAgent:
		return "transfer_agent"
	default:
		return "none"
	}
}

// Wire markers, matched as exact substrings. Casing and spelling are part of
// the contract with the completion prompt.
const (
	MarkerQualification = "QUALIFICACAO_COMPLETA"
	MarkerCatalog       = "ENVIAR_CATALOGO"
	MarkerOrder         = "PEDIDO_COMPLETO"
	MarkerTransfer      = "TRANSFERIR_ATENDENTE"
)

// priority is the recognition order when several markers appear in one
// output. The first hit wins and the rest are ignored (their markers are
// still stripped from the clean text).
var priority = []struct {
	directive Directive
	marker    string
}{
	{QualificationComplete, MarkerQualification},
	{SendCatalog, MarkerCatalog},
	{OrderComplete, MarkerOrder},
	{TransferAgent, MarkerTransfer},
}

// Result is the interpreted completion output.
type Result struct {
	Directive Directive
	// Clean is the output with every marker removed and whitespace trimmed.
	// It may be empty when the output was only markers.
	Clean string
}

// Interpret scans raw completion output for control markers. It never fails:
// unknown content passes through untouched with Directive None.
func Interpret(raw string) Result {
	res := Result{Directive: None, Clean: raw}

	for _, p := range priority {
		if res.Directive == None && strings.Contains(res.Clean, p.marker) {
			res.Directive = p.directive
		}
		res.Clean = strings.ReplaceAll(res.Clean, p.marker, "")
	}

	res.Clean = strings.TrimSpace(res.Clean)
	return res
}
