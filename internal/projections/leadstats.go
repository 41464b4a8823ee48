package projections

import (
	"context"

	"chatbot-engine/internal/models"
	"chatbot-engine/internal/store"
)

// LeadStats summarizes qualified prospects for the commercial dashboard.
type LeadStats struct {
	Total               int            `json:"total"`
	Qualified           int            `json:"qualified"`
	ByEstablishmentType map[string]int `json:"byEstablishmentType"`
	ByState             map[string]int `json:"byState"`
}

// ComputeLeadStats aggregates every prospect session. A lead counts as
// qualified once name, location and establishment type are all known.
func ComputeLeadStats(ctx context.Context, sessions store.SessionStore) (*LeadStats, error) {
	prospects, err := sessions.SessionsByCustomerType(ctx, models.CustomerProspect)
	if err != nil {
		return nil, err
	}

	stats := &LeadStats{
		ByEstablishmentType: make(map[string]int),
		ByState:             make(map[string]int),
	}
	for _, s := range prospects {
		stats.Total++
		if s.LeadName != "" && s.LeadCity != "" && s.LeadState != "" && s.EstablishmentType != "" {
			stats.Qualified++
		}
		if s.EstablishmentType != "" {
			stats.ByEstablishmentType[string(s.EstablishmentType)]++
		}
		if s.LeadState != "" {
			stats.ByState[s.LeadState]++
		}
	}
	return stats, nil
}
