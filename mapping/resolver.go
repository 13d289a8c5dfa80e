package mapping

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Assignment binds one source column (by position) to a target field.
type Assignment struct {
	Column string `json:"column"`
	Field  Field  `json:"field"`
}

// ColumnMapping assigns every source column to a target field, a custom-data
// capture, or an explicit ignore. Assignments are positional so that
// duplicate column names stay independent.
type ColumnMapping struct {
	Assignments []Assignment `json:"assignments"`
}

// Suggest builds a candidate mapping for the given source columns using the
// keyword groups. A column matches at most one target field and each target
// field is claimed by at most one column (first one wins); everything else
// defaults to custom-data capture.
func Suggest(columns []string) *ColumnMapping {
	cm := &ColumnMapping{Assignments: make([]Assignment, len(columns))}
	claimed := make(map[Field]bool)

	for i, column := range columns {
		folded := foldColumn(column)
		field := FieldCustom
		for _, group := range keywordGroups {
			if claimed[group.field] {
				continue
			}
			for _, kw := range group.keywords {
				if strings.Contains(folded, kw) {
					field = group.field
					claimed[group.field] = true
					break
				}
			}
			if field != FieldCustom {
				break
			}
		}
		cm.Assignments[i] = Assignment{Column: column, Field: field}
	}
	return cm
}

// Set overrides the assignment at the given column position. Assigning a
// target field already held by another column releases the previous holder
// back to custom-data capture, so a field is never covered twice.
func (cm *ColumnMapping) Set(index int, field Field) {
	if index < 0 || index >= len(cm.Assignments) {
		return
	}
	if field != FieldCustom && field != FieldIgnore {
		for i := range cm.Assignments {
			if i != index && cm.Assignments[i].Field == field {
				cm.Assignments[i].Field = FieldCustom
			}
		}
	}
	cm.Assignments[index].Field = field
}

// FieldAt returns the target field assigned to the column position.
func (cm *ColumnMapping) FieldAt(index int) Field {
	if index < 0 || index >= len(cm.Assignments) {
		return FieldCustom
	}
	return cm.Assignments[index].Field
}

// MissingRequired returns the required target fields not covered by any
// assignment. The mapping step cannot be left until this is empty; the
// resolver itself never errors, it only reports the gap.
func (cm *ColumnMapping) MissingRequired() []Field {
	covered := make(map[Field]bool)
	for _, a := range cm.Assignments {
		covered[a.Field] = true
	}
	var missing []Field
	for _, f := range Required {
		if !covered[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// foldColumn lowercases a column name and strips diacritical marks so that
// "Téléphone" and "telephone" compare equal against the keyword groups.
func foldColumn(column string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(column)))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
