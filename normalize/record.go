package normalize

import "github.com/shopspring/decimal"

// Record is one source row normalized onto the import schema. Matching and
// reconciliation annotate it in place before execution.
type Record struct {
	// RowNumber is the 1-based position of the row among the data rows,
	// excluding the header.
	RowNumber int `json:"row_number"`

	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone,omitempty"`
	Address       string          `json:"address,omitempty"`
	PropertyName  string          `json:"property_name,omitempty"`
	RentAmount    decimal.Decimal `json:"rent_amount"`
	BillingDay    int             `json:"billing_day"`
	DepositMonths int             `json:"deposit_months"`
	StartDate     string          `json:"start_date,omitempty"`
	EndDate       string          `json:"end_date,omitempty"`

	// Custom carries the unmapped columns verbatim, keyed by column name.
	Custom map[string]string `json:"custom,omitempty"`

	// ValidationError is the French message for a row rejected during
	// normalization; such a row never reaches matching or execution.
	ValidationError string `json:"validation_error,omitempty"`

	// Matching and reconciliation outcome.
	MatchedPropertyID    string `json:"matched_property_id,omitempty"`
	MatchedPropertyTitle string `json:"matched_property_title,omitempty"`
	WillCreateProperty   bool   `json:"will_create_property"`
}

// PropertyQuery returns the text used to match the record against the
// property catalog: the property title when mapped, the address otherwise.
func (r *Record) PropertyQuery() string {
	if r.PropertyName != "" {
		return r.PropertyName
	}
	return r.Address
}

// Valid reports whether the record passed normalization.
func (r *Record) Valid() bool {
	return r.ValidationError == ""
}
