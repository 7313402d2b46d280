package filterir

import (
	"time"

	"github.com/roach88/tablebridge/internal/model"
)

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal
//   - Contains: literal is a substring of the field's text
//   - ArrayContains: literal is a substring of the comma-joined array field
//   - DateEquals: field falls on the given calendar day
//   - DateEqualsToday: field falls on the current calendar day
//   - And, Or, Not: logical combinators
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals represents a field-equals-literal predicate.
//
// Example:
//
//	Equals{Field: "Status", Value: model.String("Done")}
//
// compiles to:
//
//	{Status} = 'Done'
type Equals struct {
	Field string      // Field name as shown in the table
	Value model.Value // String, Number, Bool or Date
}

func (Equals) predicateNode() {}

// Contains matches when Literal occurs anywhere in the field's text.
//
// Example:
//
//	Contains{Field: "Notes", Literal: "pest"}
//
// compiles to:
//
//	FIND('pest', {Notes}) > 0
type Contains struct {
	Field   string
	Literal string
}

func (Contains) predicateNode() {}

// ArrayContains matches when Literal occurs in the comma-joined rendering
// of a multi-valued field. Used for membership tests such as "the assignee
// list contains this worker".
//
// Example:
//
//	ArrayContains{Field: "Assignee", Literal: "Sato"}
//
// compiles to:
//
//	FIND('Sato', ARRAYJOIN({Assignee}, ',')) > 0
type ArrayContains struct {
	Field   string
	Literal string
}

func (ArrayContains) predicateNode() {}

// DateEquals matches when the field falls on Date's calendar day.
// Only the year, month and day of Date are significant.
type DateEquals struct {
	Field string
	Date  time.Time
}

func (DateEquals) predicateNode() {}

// DateEqualsToday matches when the field falls on the current day.
// The compiler resolves "today" once, from its clock, so a compiled
// formula is a plain DateEquals clause.
type DateEqualsToday struct {
	Field string
}

func (DateEqualsToday) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
//
// An empty And is vacuously true; the formula builder refuses to emit one
// unless unfiltered queries are explicitly allowed.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or represents a disjunction of predicates (at least one must be true).
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Fields returns the distinct field names a predicate references, in
// first-seen order.
func Fields(p Predicate) []string {
	var out []string
	seen := map[string]bool{}
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Equals:
			add(pred.Field)
		case Contains:
			add(pred.Field)
		case ArrayContains:
			add(pred.Field)
		case DateEquals:
			add(pred.Field)
		case DateEqualsToday:
			add(pred.Field)
		case And:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		case Or:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		case Not:
			walk(pred.Predicate)
		}
	}
	walk(p)
	return out
}
