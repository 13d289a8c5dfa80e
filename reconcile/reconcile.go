// Package reconcile classifies each normalized record against the property
// catalog: link to an existing property, create a new one from the row's own
// reference, or leave the row orphaned for later manual linking.
package reconcile

import (
	"example.com/tenantimport/match"
	"example.com/tenantimport/normalize"
)

// Outcome names the category a record resolved to.
type Outcome string

const (
	// OutcomeLinked means an existing catalog property was matched.
	OutcomeLinked Outcome = "linked"
	// OutcomeCreate means a new property will be provisioned from the
	// row's title or address.
	OutcomeCreate Outcome = "create"
	// OutcomeOrphan means the row carries no property reference at all;
	// it is still importable.
	OutcomeOrphan Outcome = "orphan"
	// OutcomeError means the row failed validation and is excluded from
	// execution.
	OutcomeError Outcome = "error"
)

// Resolve attaches the reconciliation outcome to the record. Records that
// failed validation are never matched. Title is tried before address, and a
// row with either present but unmatched gets a new property provisioned
// under that value.
func Resolve(rec *normalize.Record, candidates []match.Candidate) Outcome {
	if !rec.Valid() {
		return OutcomeError
	}

	if rec.PropertyName != "" {
		if c := match.Best(rec.PropertyName, candidates); c != nil {
			rec.MatchedPropertyID = c.ID
			rec.MatchedPropertyTitle = c.Title
			return OutcomeLinked
		}
	} else if rec.Address != "" {
		if c := match.Best(rec.Address, candidates); c != nil {
			rec.MatchedPropertyID = c.ID
			rec.MatchedPropertyTitle = c.Title
			return OutcomeLinked
		}
	}

	if q := rec.PropertyQuery(); q != "" {
		rec.WillCreateProperty = true
		rec.MatchedPropertyTitle = q
		return OutcomeCreate
	}
	return OutcomeOrphan
}

// OutcomeOf recomputes the category of an already resolved record.
func OutcomeOf(rec *normalize.Record) Outcome {
	switch {
	case !rec.Valid():
		return OutcomeError
	case rec.MatchedPropertyID != "":
		return OutcomeLinked
	case rec.WillCreateProperty:
		return OutcomeCreate
	default:
		return OutcomeOrphan
	}
}
