package airtable

import (
	"fmt"
	"strings"
)

var formulaEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// EscapeFormulaString quotes s for use inside a single-quoted formula string.
func EscapeFormulaString(s string) string {
	return formulaEscaper.Replace(s)
}

// FieldEqualsFold builds a case-insensitive comparison, value is lowercased.
func FieldEqualsFold(field, value string) string {
	return fmt.Sprintf("LOWER({%s}) = '%s'", field, EscapeFormulaString(strings.ToLower(value)))
}
