package schema

import (
	"strings"
	"unicode"
)

// Normalize produces the canonical token for a raw header cell: all
// whitespace and the literal characters '.' and '_' are removed, case and
// everything else is preserved. "IRCTC ORDER NO." becomes "IRCTCORDERNO".
//
// The function is total over any input and idempotent.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) || r == '.' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
