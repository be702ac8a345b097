package models

import "time"

// FunctionalityType classifies what traffic a gateway serves.
type FunctionalityType string

const (
	FunctionalityRegular FunctionalityType = "regular"
	FunctionalityAI      FunctionalityType = "ai"
	FunctionalityEvent   FunctionalityType = "event"
)

// Valid reports whether t is one of the known functionality types.
func (t FunctionalityType) Valid() bool {
	switch t {
	case FunctionalityRegular, FunctionalityAI, FunctionalityEvent:
		return true
	}
	return false
}

// Gateway is a registered gateway instance owned by an organization.
// Name, OrganizationID, Vhost and FunctionalityType never change after creation.
type Gateway struct {
	ID                string            `db:"id" json:"id"`
	OrganizationID    string            `db:"organization_id" json:"organizationId"`
	Name              string            `db:"name" json:"name"`
	DisplayName       string            `db:"display_name" json:"displayName"`
	Vhost             string            `db:"vhost" json:"vhost"`
	Description       *string           `db:"description" json:"description,omitempty"`
	IsCritical        bool              `db:"is_critical" json:"isCritical"`
	FunctionalityType FunctionalityType `db:"functionality_type" json:"functionalityType"`
	IsActive          bool              `db:"is_active" json:"isActive"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updatedAt"`
	DeletedAt         *time.Time        `db:"deleted_at" json:"-"`
}

// IsDeleted reports whether the gateway has been tombstoned.
func (g *Gateway) IsDeleted() bool {
	return g.DeletedAt != nil
}

// GatewayStatus is the lightweight projection polled by the management portal.
type GatewayStatus struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	IsActive   bool   `db:"is_active" json:"isActive"`
	IsCritical bool   `db:"is_critical" json:"isCritical"`
}
