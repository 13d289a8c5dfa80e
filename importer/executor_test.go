package importer

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tenantimport/catalog"
	"example.com/tenantimport/match"
	"example.com/tenantimport/normalize"
)

// --- Mock LeaseCreator ---
type MockLeaseCreator struct {
	CreateLeaseFunc  func(ctx context.Context, req catalog.CreateLeaseRequest) (catalog.Lease, error)
	CapturedRequests []catalog.CreateLeaseRequest
}

func (m *MockLeaseCreator) CreateLease(ctx context.Context, req catalog.CreateLeaseRequest) (catalog.Lease, error) {
	m.CapturedRequests = append(m.CapturedRequests, req)
	if m.CreateLeaseFunc != nil {
		return m.CreateLeaseFunc(ctx, req)
	}
	return catalog.Lease{ID: fmt.Sprintf("lease-%d", len(m.CapturedRequests))}, nil
}

// --- Mock CatalogProvider ---
type MockCatalogProvider struct {
	ListPropertiesFunc func(ctx context.Context) ([]catalog.Property, error)
}

func (m *MockCatalogProvider) ListProperties(ctx context.Context) ([]catalog.Property, error) {
	if m.ListPropertiesFunc != nil {
		return m.ListPropertiesFunc(ctx)
	}
	return nil, nil
}

func validRecordForRow(n int) *normalize.Record {
	return &normalize.Record{
		RowNumber:  n,
		Name:       fmt.Sprintf("Locataire %d", n),
		Email:      fmt.Sprintf("locataire%d@example.com", n),
		RentAmount: decimal.NewFromInt(100000),
	}
}

func sessionWith(records ...*normalize.Record) *Session {
	return &Session{ID: "test-session", Records: records, state: StateReconciled}
}

func TestExecutorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("One Failure Does Not Abort The Batch", func(t *testing.T) {
		records := make([]*normalize.Record, 10)
		for i := range records {
			records[i] = validRecordForRow(i + 1)
		}
		records[0].MatchedPropertyID = "p1" // linked
		records[1].WillCreateProperty = true
		records[1].MatchedPropertyTitle = "Nouvelle Villa"

		mock := &MockLeaseCreator{
			CreateLeaseFunc: func(ctx context.Context, req catalog.CreateLeaseRequest) (catalog.Lease, error) {
				if req.TenantName == "Locataire 7" {
					return catalog.Lease{}, fmt.Errorf("contrat invalide")
				}
				return catalog.Lease{ID: "ok"}, nil
			},
		}

		summary := NewExecutor(mock).Run(ctx, sessionWith(records...), nil)
		assert.Equal(t, 10, summary.TotalRows)
		assert.Equal(t, 10, summary.ValidCount)
		assert.Equal(t, 1, summary.LinkedCount)
		assert.Equal(t, 1, summary.CreatedCount)
		assert.Equal(t, 7, summary.OrphanCount)
		assert.Equal(t, 1, summary.ErrorCount)
		require.Len(t, summary.FailureMessages, 1)
		assert.Equal(t, "Locataire 7: contrat invalide", summary.FailureMessages[0])
		assert.Len(t, mock.CapturedRequests, 10)
	})

	t.Run("Count Conservation", func(t *testing.T) {
		records := []*normalize.Record{
			validRecordForRow(1),
			{RowNumber: 2, ValidationError: "Ligne 3: champs manquants (Email)"},
			validRecordForRow(3),
		}
		records[0].MatchedPropertyID = "p1"

		summary := NewExecutor(&MockLeaseCreator{}).Run(ctx, sessionWith(records...), nil)
		assert.Equal(t, summary.TotalRows,
			summary.LinkedCount+summary.CreatedCount+summary.OrphanCount+summary.ErrorCount)
		assert.Equal(t, 2, summary.ValidCount)
		assert.Equal(t, 1, summary.ErrorCount)
	})

	t.Run("Invalid Rows Are Never Submitted", func(t *testing.T) {
		records := []*normalize.Record{
			{RowNumber: 1, ValidationError: "Ligne 2: champs manquants (Locataire)"},
			validRecordForRow(2),
		}
		mock := &MockLeaseCreator{}
		NewExecutor(mock).Run(ctx, sessionWith(records...), nil)
		require.Len(t, mock.CapturedRequests, 1)
		assert.Equal(t, "Locataire 2", mock.CapturedRequests[0].TenantName)
	})

	t.Run("Strictly Sequential Progress", func(t *testing.T) {
		records := []*normalize.Record{validRecordForRow(1), validRecordForRow(2), validRecordForRow(3)}
		var seen []int
		NewExecutor(&MockLeaseCreator{}).Run(ctx, sessionWith(records...), func(p int) {
			seen = append(seen, p)
		})
		assert.Equal(t, []int{33, 67, 100}, seen)
	})

	t.Run("Cancellation Stops Before Next Submission", func(t *testing.T) {
		records := make([]*normalize.Record, 5)
		for i := range records {
			records[i] = validRecordForRow(i + 1)
		}
		runCtx, cancel := context.WithCancel(ctx)
		mock := &MockLeaseCreator{
			CreateLeaseFunc: func(ctx context.Context, req catalog.CreateLeaseRequest) (catalog.Lease, error) {
				if req.TenantName == "Locataire 2" {
					cancel()
				}
				return catalog.Lease{}, nil
			},
		}
		summary := NewExecutor(mock).Run(runCtx, sessionWith(records...), nil)
		// Rows 1 and 2 were applied before the cancel took effect.
		assert.Len(t, mock.CapturedRequests, 2)
		assert.Equal(t, 2, summary.OrphanCount)
		assert.Equal(t, summary.TotalRows,
			summary.LinkedCount+summary.CreatedCount+summary.OrphanCount+summary.ErrorCount)
	})

	t.Run("Failure List Is Capped", func(t *testing.T) {
		records := make([]*normalize.Record, maxFailureMessages+5)
		for i := range records {
			records[i] = validRecordForRow(i + 1)
		}
		mock := &MockLeaseCreator{
			CreateLeaseFunc: func(ctx context.Context, req catalog.CreateLeaseRequest) (catalog.Lease, error) {
				return catalog.Lease{}, fmt.Errorf("refusé")
			},
		}
		summary := NewExecutor(mock).Run(ctx, sessionWith(records...), nil)
		assert.Len(t, summary.FailureMessages, maxFailureMessages)
		assert.Equal(t, maxFailureMessages+5, summary.ErrorCount)
	})
}

func TestBuildLeaseRequest(t *testing.T) {
	t.Run("Linked Row", func(t *testing.T) {
		rec := validRecordForRow(1)
		rec.MatchedPropertyID = "p1"
		req := buildLeaseRequest(rec)
		assert.Equal(t, "p1", req.PropertyID)
		assert.False(t, req.CreateNewProperty)
	})

	t.Run("Create Row Prices Property At Rent", func(t *testing.T) {
		rec := validRecordForRow(1)
		rec.WillCreateProperty = true
		rec.MatchedPropertyTitle = "12 Rue X, Dakar"
		rec.Address = "12 Rue X, Dakar"
		req := buildLeaseRequest(rec)
		assert.True(t, req.CreateNewProperty)
		assert.Equal(t, "12 Rue X, Dakar", req.NewPropertyTitle)
		assert.True(t, req.NewPropertyPrice.Equal(rec.RentAmount))
		assert.Empty(t, req.PropertyID)
	})

	t.Run("Orphan Row", func(t *testing.T) {
		req := buildLeaseRequest(validRecordForRow(1))
		assert.Empty(t, req.PropertyID)
		assert.False(t, req.CreateNewProperty)
	})
}

func TestSnapshot(t *testing.T) {
	provider := &MockCatalogProvider{
		ListPropertiesFunc: func(ctx context.Context) ([]catalog.Property, error) {
			return []catalog.Property{
				{ID: "p1", Title: "Villa Almadies", Price: decimal.NewFromInt(250000)},
			}, nil
		},
	}
	candidates, err := Snapshot(context.Background(), provider)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, match.Candidate{ID: "p1", Title: "Villa Almadies", Price: decimal.NewFromInt(250000)}, candidates[0])

	provider.ListPropertiesFunc = func(ctx context.Context) ([]catalog.Property, error) {
		return nil, fmt.Errorf("indisponible")
	}
	_, err = Snapshot(context.Background(), provider)
	assert.Error(t, err)
}
