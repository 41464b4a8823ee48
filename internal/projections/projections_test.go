package projections

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/models"
	"chatbot-engine/internal/store"
)

func newTestIndexer(t *testing.T, handler http.HandlerFunc) *Indexer {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewIndexer(client, "chat-sessions", logger.NewTestLogger(t))
}

func TestIndexSession(t *testing.T) {
	var gotPath string
	var gotDoc SessionDocument

	idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	sess := &models.Session{
		ID:                 42,
		Token:              "tok-42",
		CustomerType:       models.CustomerProspect,
		Category:           models.CategoryInformation,
		Status:             models.StatusTransferred,
		TransferredToAgent: true,
		LeadName:           "João",
		LeadCity:           "Campinas",
		LeadState:          "SP",
		EstablishmentType:  models.EstablishmentBakery,
	}
	require.NoError(t, idx.IndexSession(context.Background(), sess))

	assert.Equal(t, "/chat-sessions/_doc/42", gotPath)
	assert.Equal(t, "tok-42", gotDoc.Token)
	assert.Equal(t, "prospect", gotDoc.CustomerType)
	assert.Equal(t, "padaria_confeitaria", gotDoc.EstablishmentType)
	assert.True(t, gotDoc.TransferredToAgent)
}

func TestIndexSessionServerError(t *testing.T) {
	idx := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})

	err := idx.IndexSession(context.Background(), &models.Session{ID: 1})
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeIndexingFailed, stdErr.Code)
}

func TestComputeLeadStats(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	seed := []models.Session{
		{
			Token: "a", CustomerType: models.CustomerProspect,
			LeadName: "João", LeadCity: "Campinas", LeadState: "SP",
			EstablishmentType: models.EstablishmentBakery,
		},
		{
			Token: "b", CustomerType: models.CustomerProspect,
			LeadState: "SP", EstablishmentType: models.EstablishmentBuffet,
		},
		{Token: "c", CustomerType: models.CustomerProspect},
		{Token: "d", CustomerType: models.CustomerExisting},
	}
	for i := range seed {
		require.NoError(t, mem.CreateSession(ctx, &seed[i]))
	}

	stats, err := ComputeLeadStats(ctx, mem)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Qualified)
	assert.Equal(t, map[string]int{"padaria_confeitaria": 1, "buffet": 1}, stats.ByEstablishmentType)
	assert.Equal(t, map[string]int{"SP": 2}, stats.ByState)
}
