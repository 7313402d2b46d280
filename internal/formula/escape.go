package formula

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// literalEscaper escapes in a single left-to-right pass, so a backslash
// introduced by one rule is never rewritten by another.
var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\n", `\n`,
)

// Quote returns s as a single-quoted formula string literal.
// The input is NFC-normalised first so visually identical text typed on
// different platforms compares equal remotely.
func Quote(s string) string {
	return "'" + literalEscaper.Replace(norm.NFC.String(s)) + "'"
}

// FieldRef returns the formula reference for a field name.
// Names are embedded verbatim; see CheckFieldName.
func FieldRef(name string) string {
	return "{" + name + "}"
}

// CheckFieldName rejects names FieldRef cannot embed. The reference syntax
// has no escape, so a closing brace would end the reference early.
func CheckFieldName(name string) error {
	if strings.Contains(name, "}") {
		return fmt.Errorf("field %q: name must not contain '}'", name)
	}
	return nil
}

// unescape reverses literalEscaper. Unknown escapes yield the escaped
// character itself.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
