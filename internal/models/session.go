package models

import "time"

// CustomerType classifies who is on the other side of the chat.
type CustomerType string

const (
	CustomerUnknown  CustomerType = "unknown"
	CustomerExisting CustomerType = "existing"
	CustomerProspect CustomerType = "prospect"
)

// Category is the classified purpose of a conversation.
type Category string

const (
	CategoryUnknown     Category = "unknown"
	CategoryInformation Category = "information"
	CategoryCatalog     Category = "catalog"
	CategoryOrder       Category = "order"
)

// Status tracks whether the bot still owns the conversation.
type Status string

const (
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusTransferred Status = "transferred"
)

// EstablishmentType is the closed enumeration used for prospect qualification.
type EstablishmentType string

const (
	EstablishmentSupermarket EstablishmentType = "supermercado"
	EstablishmentCafe        EstablishmentType = "cafeteria"
	EstablishmentBakery      EstablishmentType = "padaria_confeitaria"
	EstablishmentBuffet      EstablishmentType = "buffet"
	EstablishmentCatering    EstablishmentType = "catering"
	EstablishmentDistributor EstablishmentType = "distribuidor"
	EstablishmentRep         EstablishmentType = "representante"
)

// Session is one customer's chat interaction lifecycle.
//
// CustomerType and Category are one-way out of "unknown": once set they are
// never cleared, and extraction never replaces a populated fact with an
// empty one. Status "transferred" is terminal for bot handling.
type Session struct {
	ID                 int64        `json:"id" db:"id"`
	Token              string       `json:"token" db:"token"`
	CustomerName       string       `json:"customerName,omitempty" db:"customer_name"`
	CustomerPhone      string       `json:"customerPhone,omitempty" db:"customer_phone"`
	CustomerType       CustomerType `json:"customerType" db:"customer_type"`
	Category           Category     `json:"category" db:"category"`
	Status             Status       `json:"status" db:"status"`
	TransferredToAgent bool         `json:"transferredToAgent" db:"transferred_to_agent"`

	// Lead facts, collected while qualifying a prospect.
	LeadName          string            `json:"leadName,omitempty" db:"lead_name"`
	LeadCity          string            `json:"leadCity,omitempty" db:"lead_city"`
	LeadState         string            `json:"leadState,omitempty" db:"lead_state"`
	EstablishmentType EstablishmentType `json:"establishmentType,omitempty" db:"establishment_type"`

	// Order facts, collected from an existing customer's order flow.
	OrderEstablishment string `json:"orderEstablishment,omitempty" db:"order_establishment"`
	OrderTaxID         string `json:"orderTaxId,omitempty" db:"order_tax_id"`
	OrderProducts      string `json:"orderProducts,omitempty" db:"order_products"`
	OrderDeliveryDate  string `json:"orderDeliveryDate,omitempty" db:"order_delivery_date"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsTransferred reports whether a human agent owns this session.
func (s *Session) IsTransferred() bool {
	return s.Status == StatusTransferred
}

// ValidEstablishmentType reports whether t is one of the closed enumeration
// values (the empty string is not).
func ValidEstablishmentType(t EstablishmentType) bool {
	switch t {
	case EstablishmentSupermarket, EstablishmentCafe, EstablishmentBakery,
		EstablishmentBuffet, EstablishmentCatering, EstablishmentDistributor,
		EstablishmentRep:
		return true
	}
	return false
}
