package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldEmailCase lower-cases an address so values differing only in case
// compare equal. The input is otherwise left untouched.
func FoldEmailCase(email string) string {
	return cases.Lower(language.Und).String(email)
}

// NormalizeEmail trims surrounding whitespace, then folds case.
func NormalizeEmail(email string) string {
	return FoldEmailCase(strings.TrimSpace(email))
}
