package phoneutil

import (
	"strings"
	"unicode"
)

// Digits strips everything but decimal digits, so "+7 (999) 123-45-67"
// and "79991234567" compare equal.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal compares two phone numbers on digits only. The Russian trunk
// prefix is folded: an 11-digit number starting with 8 matches the same
// number starting with 7.
func Equal(a, b string) bool {
	da, db := foldTrunk(Digits(a)), foldTrunk(Digits(b))
	if da == "" || db == "" {
		return false
	}
	return da == db
}

func foldTrunk(digits string) string {
	if len(digits) == 11 && digits[0] == '8' {
		return "7" + digits[1:]
	}
	return digits
}

// FoldName normalizes a person's name for case-insensitive comparison:
// lower-cased, inner whitespace collapsed.
func FoldName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
