// Package projections feeds the read side: session documents in
// Elasticsearch for the commercial dashboard, and lead statistics computed
// from the session store. Projection failures never fail the turn that
// produced them.
package projections

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/models"
)

// SessionDocument is the dashboard-facing shape of a session.
type SessionDocument struct {
	Token              string `json:"token"`
	CustomerName       string `json:"customer_name,omitempty"`
	CustomerType       string `json:"customer_type"`
	Category           string `json:"category"`
	Status             string `json:"status"`
	TransferredToAgent bool   `json:"transferred_to_agent"`
	LeadName           string `json:"lead_name,omitempty"`
	LeadCity           string `json:"lead_city,omitempty"`
	LeadState          string `json:"lead_state,omitempty"`
	EstablishmentType  string `json:"establishment_type,omitempty"`
	OrderEstablishment string `json:"order_establishment,omitempty"`
	OrderProducts      string `json:"order_products,omitempty"`
	OrderDeliveryDate  string `json:"order_delivery_date,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// Indexer writes session documents into Elasticsearch.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{client: client, index: index, logger: log}
}

// IndexSession upserts the session document, keyed by session id so
// re-indexing after every turn stays idempotent.
func (i *Indexer) IndexSession(ctx context.Context, sess *models.Session) error {
	doc := SessionDocument{
		Token:              sess.Token,
		CustomerName:       sess.CustomerName,
		CustomerType:       string(sess.CustomerType),
		Category:           string(sess.Category),
		Status:             string(sess.Status),
		TransferredToAgent: sess.TransferredToAgent,
		LeadName:           sess.LeadName,
		LeadCity:           sess.LeadCity,
		LeadState:          sess.LeadState,
		EstablishmentType:  string(sess.EstablishmentType),
		OrderEstablishment: sess.OrderEstablishment,
		OrderProducts:      sess.OrderProducts,
		OrderDeliveryDate:  sess.OrderDeliveryDate,
		CreatedAt:          sess.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          sess.UpdatedAt.Format(time.RFC3339),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewIndexingError(fmt.Sprintf("marshal document: %v", err))
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(strconv.FormatInt(sess.ID, 10)),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return apperrors.NewIndexingError(err.Error())
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewIndexingError(fmt.Sprintf("index response: %s", res.Status()))
	}

	i.logger.Debug("session indexed", map[string]interface{}{
		"session_id": sess.ID,
		"index":      i.index,
	})
	return nil
}
