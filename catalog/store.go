package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store keeps properties and leases in memory.
type Store struct {
	properties map[string]Property
	leases     map[string]Lease
	mu         sync.RWMutex
}

// NewStore creates and returns a new Store.
func NewStore() *Store {
	return &Store{
		properties: make(map[string]Property),
		leases:     make(map[string]Lease),
	}
}

// CreateProperty adds a property to the catalog.
func (s *Store) CreateProperty(ctx context.Context, title, address string, price decimal.Decimal) (Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		return Property{}, fmt.Errorf("property title cannot be empty")
	}
	prop := newProperty(title, address, price)
	s.properties[prop.ID] = prop
	return prop, nil
}

// GetProperty retrieves a property by its ID.
func (s *Store) GetProperty(ctx context.Context, id string) (Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prop, ok := s.properties[id]
	return prop, ok
}

// ListProperties retrieves all catalog properties.
func (s *Store) ListProperties(ctx context.Context) ([]Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Property, 0, len(s.properties))
	for _, prop := range s.properties {
		list = append(list, prop)
	}
	return list, nil
}

// ListLeases retrieves all leases.
func (s *Store) ListLeases(ctx context.Context) ([]Lease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Lease, 0, len(s.leases))
	for _, lease := range s.leases {
		list = append(list, lease)
	}
	return list, nil
}

// CreateLease creates one lease, provisioning a new property first when the
// request asks for one. A tenant email already held by an active lease is
// rejected with ErrActiveEmailExists.
func (s *Store) CreateLease(ctx context.Context, req CreateLeaseRequest) (Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateLeaseRequest(req); err != nil {
		return Lease{}, err
	}
	for _, lease := range s.leases {
		if lease.Status == "active" && strings.EqualFold(lease.TenantEmail, req.TenantEmail) {
			return Lease{}, ErrActiveEmailExists
		}
	}

	propertyID := req.PropertyID
	if req.CreateNewProperty {
		if req.NewPropertyTitle == "" {
			return Lease{}, fmt.Errorf("new property title cannot be empty")
		}
		prop := newProperty(req.NewPropertyTitle, req.NewPropertyAddress, req.NewPropertyPrice)
		s.properties[prop.ID] = prop
		propertyID = prop.ID
	} else if propertyID != "" {
		if _, ok := s.properties[propertyID]; !ok {
			return Lease{}, fmt.Errorf("property with ID %s not found", propertyID)
		}
	}

	lease := newLease(req, propertyID)
	s.leases[lease.ID] = lease
	return lease, nil
}

func validateLeaseRequest(req CreateLeaseRequest) error {
	if req.TenantName == "" {
		return fmt.Errorf("tenant name cannot be empty")
	}
	if req.TenantEmail == "" {
		return fmt.Errorf("tenant email cannot be empty")
	}
	if !req.MonthlyAmount.IsPositive() {
		return fmt.Errorf("monthly amount must be positive")
	}
	return nil
}

func newProperty(title, address string, price decimal.Decimal) Property {
	now := time.Now().UTC()
	return Property{
		ID:        uuid.New().String(),
		Title:     title,
		Address:   address,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newLease(req CreateLeaseRequest, propertyID string) Lease {
	startDate := req.StartDate
	if startDate == "" {
		startDate = time.Now().UTC().Format("2006-01-02")
	}
	return Lease{
		ID:            uuid.New().String(),
		TenantName:    req.TenantName,
		TenantEmail:   strings.ToLower(req.TenantEmail),
		TenantPhone:   req.TenantPhone,
		PropertyID:    propertyID,
		MonthlyAmount: req.MonthlyAmount,
		BillingDay:    req.BillingDay,
		DepositMonths: req.DepositMonths,
		StartDate:     startDate,
		EndDate:       req.EndDate,
		Status:        "active",
		CustomData:    req.CustomData,
		CreatedAt:     time.Now().UTC(),
	}
}
