package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS properties (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	price TEXT NOT NULL DEFAULT '0',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS leases (
	id TEXT PRIMARY KEY,
	tenant_name TEXT NOT NULL,
	tenant_email TEXT NOT NULL,
	tenant_phone TEXT NOT NULL DEFAULT '',
	property_id TEXT NOT NULL DEFAULT '',
	monthly_amount TEXT NOT NULL,
	billing_day INTEGER NOT NULL,
	deposit_months INTEGER NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	custom_data TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leases_email ON leases (tenant_email, status);
`

// SQLiteStore persists the catalog in a SQLite database file. It satisfies
// the same contract as the in-memory Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and bootstraps the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// The driver is file-backed; concurrent writers fight over the file
	// lock, so funnel everything through one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateProperty adds a property to the catalog.
func (s *SQLiteStore) CreateProperty(ctx context.Context, title, address string, price decimal.Decimal) (Property, error) {
	if title == "" {
		return Property{}, fmt.Errorf("property title cannot be empty")
	}
	prop := newProperty(title, address, price)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (id, title, address, price, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		prop.ID, prop.Title, prop.Address, prop.Price.String(), prop.CreatedAt, prop.UpdatedAt)
	if err != nil {
		return Property{}, fmt.Errorf("inserting property: %w", err)
	}
	return prop, nil
}

// GetProperty retrieves a property by its ID.
func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (Property, bool) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, address, price, created_at, updated_at FROM properties WHERE id = ?`, id)
	prop, err := scanProperty(row)
	if err != nil {
		return Property{}, false
	}
	return prop, true
}

// ListProperties retrieves all catalog properties.
func (s *SQLiteStore) ListProperties(ctx context.Context) ([]Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, address, price, created_at, updated_at FROM properties ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()

	var list []Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, prop)
	}
	return list, rows.Err()
}

// ListLeases retrieves all leases.
func (s *SQLiteStore) ListLeases(ctx context.Context) ([]Lease, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_name, tenant_email, tenant_phone, property_id, monthly_amount,
		        billing_day, deposit_months, start_date, end_date, status, custom_data, created_at
		 FROM leases ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing leases: %w", err)
	}
	defer rows.Close()

	var list []Lease
	for rows.Next() {
		var lease Lease
		var amount, customData string
		if err := rows.Scan(&lease.ID, &lease.TenantName, &lease.TenantEmail, &lease.TenantPhone,
			&lease.PropertyID, &amount, &lease.BillingDay, &lease.DepositMonths,
			&lease.StartDate, &lease.EndDate, &lease.Status, &customData, &lease.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lease: %w", err)
		}
		lease.MonthlyAmount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing lease amount %q: %w", amount, err)
		}
		if customData != "" && customData != "{}" {
			if err := json.Unmarshal([]byte(customData), &lease.CustomData); err != nil {
				return nil, fmt.Errorf("parsing lease custom data: %w", err)
			}
		}
		list = append(list, lease)
	}
	return list, rows.Err()
}

// CreateLease creates one lease, provisioning a new property in the same
// transaction when the request asks for one. A tenant email already held by
// an active lease is rejected with ErrActiveEmailExists.
func (s *SQLiteStore) CreateLease(ctx context.Context, req CreateLeaseRequest) (Lease, error) {
	if err := validateLeaseRequest(req); err != nil {
		return Lease{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Lease{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leases WHERE status = 'active' AND tenant_email = ?`,
		strings.ToLower(req.TenantEmail)).Scan(&count)
	if err != nil {
		return Lease{}, fmt.Errorf("checking tenant email: %w", err)
	}
	if count > 0 {
		return Lease{}, ErrActiveEmailExists
	}

	propertyID := req.PropertyID
	if req.CreateNewProperty {
		if req.NewPropertyTitle == "" {
			return Lease{}, fmt.Errorf("new property title cannot be empty")
		}
		prop := newProperty(req.NewPropertyTitle, req.NewPropertyAddress, req.NewPropertyPrice)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO properties (id, title, address, price, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			prop.ID, prop.Title, prop.Address, prop.Price.String(), prop.CreatedAt, prop.UpdatedAt)
		if err != nil {
			return Lease{}, fmt.Errorf("inserting new property: %w", err)
		}
		propertyID = prop.ID
	} else if propertyID != "" {
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties WHERE id = ?`, propertyID).Scan(&exists)
		if err != nil {
			return Lease{}, fmt.Errorf("checking property: %w", err)
		}
		if exists == 0 {
			return Lease{}, fmt.Errorf("property with ID %s not found", propertyID)
		}
	}

	lease := newLease(req, propertyID)
	customData := "{}"
	if len(lease.CustomData) > 0 {
		encoded, err := json.Marshal(lease.CustomData)
		if err != nil {
			return Lease{}, fmt.Errorf("encoding lease custom data: %w", err)
		}
		customData = string(encoded)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO leases (id, tenant_name, tenant_email, tenant_phone, property_id, monthly_amount,
		                     billing_day, deposit_months, start_date, end_date, status, custom_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lease.ID, lease.TenantName, lease.TenantEmail, lease.TenantPhone, lease.PropertyID,
		lease.MonthlyAmount.String(), lease.BillingDay, lease.DepositMonths,
		lease.StartDate, lease.EndDate, lease.Status, customData, lease.CreatedAt)
	if err != nil {
		return Lease{}, fmt.Errorf("inserting lease: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Lease{}, fmt.Errorf("committing lease: %w", err)
	}
	return lease, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (Property, error) {
	var prop Property
	var price string
	if err := row.Scan(&prop.ID, &prop.Title, &prop.Address, &price, &prop.CreatedAt, &prop.UpdatedAt); err != nil {
		return Property{}, fmt.Errorf("scanning property: %w", err)
	}
	var err error
	prop.Price, err = decimal.NewFromString(price)
	if err != nil {
		return Property{}, fmt.Errorf("parsing property price %q: %w", price, err)
	}
	return prop, nil
}
