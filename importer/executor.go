package importer

import (
	"context"
	"fmt"
	"log"
	"math"

	"example.com/tenantimport/catalog"
	"example.com/tenantimport/match"
	"example.com/tenantimport/normalize"
	"example.com/tenantimport/reconcile"
)

// maxFailureMessages caps the failure list surfaced to the user; the error
// count keeps counting past the cap.
const maxFailureMessages = 20

// CatalogProvider supplies the property snapshot a session matches against.
type CatalogProvider interface {
	ListProperties(ctx context.Context) ([]catalog.Property, error)
}

// LeaseCreator is the entity creation service invoked once per eligible row.
type LeaseCreator interface {
	CreateLease(ctx context.Context, req catalog.CreateLeaseRequest) (catalog.Lease, error)
}

// Executor applies a reconciled session to the catalog, one row at a time.
type Executor struct {
	leases LeaseCreator
}

// NewExecutor creates an Executor backed by the given entity creation
// service.
func NewExecutor(leases LeaseCreator) *Executor {
	return &Executor{leases: leases}
}

// Snapshot fetches the candidate list a session will match against. It is
// taken once per session; the catalog is treated as read-only afterwards.
func Snapshot(ctx context.Context, provider CatalogProvider) ([]match.Candidate, error) {
	properties, err := provider.ListProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing catalog properties: %w", err)
	}
	candidates := make([]match.Candidate, len(properties))
	for i, p := range properties {
		candidates[i] = match.Candidate{ID: p.ID, Title: p.Title, Address: p.Address, Price: p.Price}
	}
	return candidates, nil
}

// Run executes the session's eligible rows strictly in order. Row N+1 is
// submitted only after row N returns; the creation service's duplicate
// checks rely on that ordering. Cancellation stops before the next
// submission and never rolls back applied rows. The returned summary always
// satisfies linked + created + orphan + error == total rows.
func (e *Executor) Run(ctx context.Context, session *Session, onProgress func(int)) Summary {
	summary := Summary{TotalRows: len(session.Records)}

	var eligible []*normalize.Record
	for _, rec := range session.Records {
		if rec.Valid() {
			eligible = append(eligible, rec)
		} else {
			summary.ErrorCount++
		}
	}
	summary.ValidCount = len(eligible)

	for processed, rec := range eligible {
		if ctx.Err() != nil {
			log.Printf("import %s: cancelled after %d of %d rows", session.ID, processed, len(eligible))
			summary.ErrorCount += len(eligible) - processed
			break
		}

		_, err := e.leases.CreateLease(ctx, buildLeaseRequest(rec))
		if err != nil {
			summary.ErrorCount++
			if len(summary.FailureMessages) < maxFailureMessages {
				summary.FailureMessages = append(summary.FailureMessages, fmt.Sprintf("%s: %v", rec.Name, err))
			}
		} else {
			switch reconcile.OutcomeOf(rec) {
			case reconcile.OutcomeLinked:
				summary.LinkedCount++
			case reconcile.OutcomeCreate:
				summary.CreatedCount++
			default:
				summary.OrphanCount++
			}
		}

		progress := int(math.Round(float64(processed+1) / float64(len(eligible)) * 100))
		session.setProgress(progress)
		if onProgress != nil {
			onProgress(progress)
		}
	}
	return summary
}

func buildLeaseRequest(rec *normalize.Record) catalog.CreateLeaseRequest {
	req := catalog.CreateLeaseRequest{
		TenantName:    rec.Name,
		TenantEmail:   rec.Email,
		TenantPhone:   rec.Phone,
		MonthlyAmount: rec.RentAmount,
		BillingDay:    rec.BillingDay,
		DepositMonths: rec.DepositMonths,
		StartDate:     rec.StartDate,
		EndDate:       rec.EndDate,
		CustomData:    rec.Custom,
	}
	switch {
	case rec.MatchedPropertyID != "":
		req.PropertyID = rec.MatchedPropertyID
	case rec.WillCreateProperty:
		req.CreateNewProperty = true
		req.NewPropertyTitle = rec.MatchedPropertyTitle
		req.NewPropertyAddress = rec.Address
		// A freshly provisioned property is priced at the row's rent.
		req.NewPropertyPrice = rec.RentAmount
	}
	return req
}
