// Package normalize turns raw tabular rows into canonical import records:
// trimmed text, decimal rent amounts, ISO dates and defaulted billing terms,
// with required-field validation recorded per row.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/tenantimport/mapping"
	"example.com/tenantimport/tabular"
)

// Defaults applied when the source column is absent or unparsable.
const (
	DefaultBillingDay    = 5
	DefaultDepositMonths = 2
)

var (
	dayMonthYearRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	isoDateRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	serialDateRe   = regexp.MustCompile(`^\d{5}$`)
	yearRe         = regexp.MustCompile(`^\d{4}$`)
	nonAmountRe    = regexp.MustCompile(`[^0-9.]`)
)

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// frenchMonths maps folded French month names to their 1-based number.
var frenchMonths = map[string]int{
	"janvier": 1, "fevrier": 2, "mars": 3, "avril": 4,
	"mai": 5, "juin": 6, "juillet": 7, "aout": 8,
	"septembre": 9, "octobre": 10, "novembre": 11, "decembre": 12,
}

// BuildRecord normalizes one data row under the given mapping. rowNumber is
// the 1-based position of the row among the data rows. The returned record
// carries a ValidationError when a required field is missing; such records
// are reported but never executed.
func BuildRecord(row tabular.Row, cm *mapping.ColumnMapping, rowNumber int) *Record {
	rec := &Record{
		RowNumber:     rowNumber,
		BillingDay:    DefaultBillingDay,
		DepositMonths: DefaultDepositMonths,
	}

	for i, a := range cm.Assignments {
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		switch a.Field {
		case mapping.FieldName:
			rec.Name = value
		case mapping.FieldEmail:
			rec.Email = strings.ToLower(value)
		case mapping.FieldPhone:
			rec.Phone = value
		case mapping.FieldAddress:
			rec.Address = value
		case mapping.FieldPropertyName:
			rec.PropertyName = value
		case mapping.FieldRentAmount:
			rec.RentAmount = parseAmount(value)
		case mapping.FieldBillingDay:
			// Zero counts as absent, like an empty cell.
			if d, err := strconv.Atoi(value); err == nil && d != 0 {
				rec.BillingDay = d
			}
		case mapping.FieldDepositMonths:
			if m, err := strconv.Atoi(value); err == nil && m != 0 {
				rec.DepositMonths = m
			}
		case mapping.FieldStartDate:
			rec.StartDate = ParseDate(value)
		case mapping.FieldEndDate:
			rec.EndDate = ParseDate(value)
		case mapping.FieldCustom:
			if value != "" {
				if rec.Custom == nil {
					rec.Custom = make(map[string]string)
				}
				rec.Custom[a.Column] = value
			}
		case mapping.FieldIgnore:
		}
	}

	if missing := missingLabels(rec); len(missing) > 0 {
		// The displayed line number counts the header row too.
		rec.ValidationError = fmt.Sprintf("Ligne %d: champs manquants (%s)",
			rowNumber+1, strings.Join(missing, ", "))
	}
	return rec
}

func missingLabels(rec *Record) []string {
	var missing []string
	if rec.Name == "" {
		missing = append(missing, "Locataire")
	}
	if rec.Email == "" {
		missing = append(missing, "Email")
	}
	if !rec.RentAmount.IsPositive() {
		missing = append(missing, "Loyer")
	}
	return missing
}

// parseAmount strips currency symbols, spaces and thousand separators and
// parses what remains as a decimal. Anything unparsable or non-positive
// comes back as zero, which validation treats as missing.
func parseAmount(value string) decimal.Decimal {
	cleaned := nonAmountRe.ReplaceAllString(value, "")
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || !d.IsPositive() {
		return decimal.Zero
	}
	return d
}

// ParseDate rewrites a source date into YYYY-MM-DD. Four conventions are
// tried in order: DD/MM/YYYY (or DD-MM-YYYY), ISO passthrough, a
// spreadsheet serial number (unformatted workbook date cells surface as
// strings like "45356"), and a French month name with a 4-digit year
// anywhere in the value (day fixed to 01). Anything else comes back empty.
func ParseDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if m := dayMonthYearRe.FindStringSubmatch(value); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
		}
		return ""
	}
	if isoDateRe.MatchString(value) {
		return value
	}
	// Five digits keeps plain years from being misread as serials.
	if serialDateRe.MatchString(value) {
		days, _ := strconv.Atoi(value)
		return excelEpoch.AddDate(0, 0, days).Format("2006-01-02")
	}
	month, year := 0, ""
	for _, token := range strings.Fields(Fold(value)) {
		if m, ok := frenchMonths[token]; ok {
			month = m
		} else if yearRe.MatchString(token) {
			year = token
		}
	}
	if month != 0 && year != "" {
		return fmt.Sprintf("%s-%02d-01", year, month)
	}
	return ""
}
