// Package render turns records into the plain text handed back to the
// conversational agent.
//
// Rendering never fails. The remote schema is not known statically, so a
// missing field, a null, an empty string and an empty lookup list all
// produce the same fallback token, and lookup lists show their first
// element.
package render

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/tablebridge/internal/model"
)

// DefaultFallback replaces values that are absent or empty.
const DefaultFallback = "N/A"

// Empty-result messages. Callers match on these exact strings, so they are
// part of the output contract.
const (
	NoResults    = "No matching records found."
	NoResultsFor = "No matching records found for %s."
)

// Column selects one field and the label it is shown under.
// An empty Label shows the field name.
type Column struct {
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	Field string `yaml:"field" json:"field"`
}

// FieldSpec describes how records are summarised.
type FieldSpec struct {
	// Title heads the listing, e.g. "Tasks for today".
	Title string `yaml:"title,omitempty" json:"title,omitempty"`

	// Columns are rendered in order. With no columns every field is shown
	// in lexical order.
	Columns []Column `yaml:"columns,omitempty" json:"columns,omitempty"`

	// Fallback replaces absent or empty values. Defaults to DefaultFallback.
	Fallback string `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

var printer = message.NewPrinter(language.English)

// Render summarises records, one line per record under a count header.
//
// When records is empty the result is exactly NoResults if subject is
// empty, or NoResultsFor with subject substituted otherwise.
func Render(records []model.Record, spec FieldSpec, subject string) string {
	if len(records) == 0 {
		return Empty(subject)
	}

	var b strings.Builder
	b.WriteString(header(len(records), spec.Title, subject))
	for _, rec := range records {
		b.WriteString("\n- ")
		b.WriteString(Line(rec, spec))
	}
	return b.String()
}

// Empty returns the no-results message for subject.
func Empty(subject string) string {
	if subject == "" {
		return NoResults
	}
	return fmt.Sprintf(NoResultsFor, subject)
}

// Line renders a single record as "Label: value / Label: value".
func Line(rec model.Record, spec FieldSpec) string {
	fallback := spec.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}

	cols := spec.Columns
	if len(cols) == 0 {
		for _, name := range rec.Fields.SortedKeys() {
			cols = append(cols, Column{Field: name})
		}
	}

	parts := make([]string, len(cols))
	for i, col := range cols {
		label := col.Label
		if label == "" {
			label = col.Field
		}
		parts[i] = label + ": " + flatten(rec.Fields.Display(col.Field, fallback))
	}
	return strings.Join(parts, " / ")
}

func header(n int, title, subject string) string {
	var count string
	if n == 1 {
		count = "1 record"
	} else {
		count = printer.Sprintf("%d records", n)
	}

	switch {
	case title != "" && subject != "":
		return fmt.Sprintf("%s for %s (%s):", title, subject, count)
	case title != "":
		return fmt.Sprintf("%s (%s):", title, count)
	case subject != "":
		return fmt.Sprintf("Found %s for %s:", count, subject)
	default:
		return fmt.Sprintf("Found %s:", count)
	}
}

// flatten keeps each record on one line.
func flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
