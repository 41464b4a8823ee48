package qualification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatbot-engine/internal/engine/lexicon"
	"chatbot-engine/internal/models"
)

func TestNextCustomerType(t *testing.T) {
	m := NewMachine(lexicon.MustLoad())

	tests := []struct {
		name      string
		current   models.CustomerType
		utterance string
		expected  models.CustomerType
	}{
		{"yes classifies as existing", models.CustomerUnknown, "sim, já sou cliente", models.CustomerExisting},
		{"no classifies as prospect", models.CustomerUnknown, "não, ainda não", models.CustomerProspect},
		{"neutral stays unknown", models.CustomerUnknown, "bom dia", models.CustomerUnknown},
		{"affirmative wins when both match", models.CustomerUnknown, "sim, mas ainda não fechei pedido", models.CustomerExisting},
		{"existing never reclassifies", models.CustomerExisting, "não sou cliente", models.CustomerExisting},
		{"prospect never reclassifies", models.CustomerProspect, "sim", models.CustomerProspect},
		{"empty current treated as unknown", "", "sim", models.CustomerExisting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.NextCustomerType(tt.current, tt.utterance))
		})
	}
}

func TestFallbackCategory(t *testing.T) {
	m := NewMachine(lexicon.MustLoad())

	tests := []struct {
		name      string
		current   models.Category
		utterance string
		expected  models.Category
	}{
		{"catalog keyword", models.CategoryUnknown, "me manda o catálogo", models.CategoryCatalog},
		{"order keyword", models.CategoryUnknown, "quero fazer um pedido", models.CategoryOrder},
		{"information keyword", models.CategoryUnknown, "só uma informação rápida", models.CategoryInformation},
		{"no keyword stays unknown", models.CategoryUnknown, "olá", models.CategoryUnknown},
		{"classified category never changes", models.CategoryCatalog, "quero fazer um pedido", models.CategoryCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.FallbackCategory(tt.current, tt.utterance))
		})
	}
}
