// Package mapping resolves arbitrary source columns onto the fixed target
// schema of the bulk import. It suggests an assignment from keyword
// heuristics, accepts user overrides, and reports required-field coverage.
package mapping

// Field identifies a target field of the import schema.
type Field string

const (
	FieldName          Field = "name"
	FieldEmail         Field = "email"
	FieldRentAmount    Field = "rent_amount"
	FieldPhone         Field = "phone"
	FieldAddress       Field = "address"
	FieldPropertyName  Field = "property_name"
	FieldBillingDay    Field = "billing_day"
	FieldDepositMonths Field = "deposit_months"
	FieldStartDate     Field = "start_date"
	FieldEndDate       Field = "end_date"

	// FieldCustom captures an unmapped column verbatim into the record's
	// custom-data bag instead of dropping it.
	FieldCustom Field = "custom"
	// FieldIgnore drops the column entirely.
	FieldIgnore Field = "ignore"
)

// Required is the fixed set of target fields that must be covered before the
// import can advance past the mapping step.
var Required = []Field{FieldName, FieldEmail, FieldRentAmount}

var labels = map[Field]string{
	FieldName:          "Locataire (Nom)",
	FieldEmail:         "Email",
	FieldRentAmount:    "Loyer (Montant)",
	FieldPhone:         "Téléphone",
	FieldAddress:       "Adresse",
	FieldPropertyName:  "Bien (Titre)",
	FieldBillingDay:    "Jour de paiement",
	FieldDepositMonths: "Mois de caution",
	FieldStartDate:     "Début bail",
	FieldEndDate:       "Fin bail",
	FieldCustom:        "Donnée personnalisée",
	FieldIgnore:        "Ignorer",
}

// Label returns the user-facing label of a target field.
func Label(f Field) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is a known target field.
func (f Field) Valid() bool {
	_, ok := labels[f]
	return ok
}

// keywordGroups drives suggestion: for each target field, in priority order,
// the substrings that identify it in a folded column name. The first group
// with a hit wins, so the more specific concerns come before generic ones
// (e.g. "adresse du bien" must resolve to address, not to the property
// title via "bien").
var keywordGroups = []struct {
	field    Field
	keywords []string
}{
	{FieldName, []string{"locataire", "nom", "name", "tenant"}},
	{FieldEmail, []string{"email", "mail", "courriel"}},
	{FieldRentAmount, []string{"loyer", "montant", "rent", "prix", "amount"}},
	{FieldPhone, []string{"telephone", "phone", "portable", "tel"}},
	{FieldAddress, []string{"adresse", "address", "localisation"}},
	{FieldPropertyName, []string{"bien", "propriete", "property", "immeuble", "titre"}},
	{FieldStartDate, []string{"debut", "start", "entree"}},
	{FieldEndDate, []string{"fin", "end", "sortie"}},
	{FieldBillingDay, []string{"jour", "day", "echeance"}},
	{FieldDepositMonths, []string{"caution", "deposit", "garantie"}},
}
