// Package catalog holds the property and lease records the import pipeline
// reads from and writes to. Two store implementations share one contract: an
// in-memory store for tests and ephemeral runs, and a SQLite-backed store
// for persistent deployments.
package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrActiveEmailExists rejects a lease whose tenant email is already used by
// an active lease.
var ErrActiveEmailExists = errors.New("un locataire actif utilise déjà cet email")

// Property is a catalog entry a lease can be attached to.
type Property struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Address   string          `json:"address,omitempty"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Lease is one tenant contract. PropertyID is empty for leases imported
// without any property reference.
type Lease struct {
	ID            string            `json:"id"`
	TenantName    string            `json:"tenant_name"`
	TenantEmail   string            `json:"tenant_email"`
	TenantPhone   string            `json:"tenant_phone,omitempty"`
	PropertyID    string            `json:"property_id,omitempty"`
	MonthlyAmount decimal.Decimal   `json:"monthly_amount"`
	BillingDay    int               `json:"billing_day"`
	DepositMonths int               `json:"deposit_months"`
	StartDate     string            `json:"start_date"`
	EndDate       string            `json:"end_date,omitempty"`
	Status        string            `json:"status"`
	CustomData    map[string]string `json:"custom_data,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CreateLeaseRequest carries everything needed to create one lease, with an
// optional new property provisioned in the same operation.
type CreateLeaseRequest struct {
	TenantName    string            `json:"tenant_name"`
	TenantEmail   string            `json:"tenant_email"`
	TenantPhone   string            `json:"tenant_phone,omitempty"`
	MonthlyAmount decimal.Decimal   `json:"monthly_amount"`
	BillingDay    int               `json:"billing_day"`
	DepositMonths int               `json:"deposit_months"`
	StartDate     string            `json:"start_date,omitempty"`
	EndDate       string            `json:"end_date,omitempty"`
	CustomData    map[string]string `json:"custom_data,omitempty"`

	// Either an existing property, a new one, or neither.
	PropertyID         string          `json:"property_id,omitempty"`
	CreateNewProperty  bool            `json:"create_new_property"`
	NewPropertyTitle   string          `json:"new_property_title,omitempty"`
	NewPropertyAddress string          `json:"new_property_address,omitempty"`
	NewPropertyPrice   decimal.Decimal `json:"new_property_price"`
}
