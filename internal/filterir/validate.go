package filterir

import (
	"fmt"

	"github.com/roach88/tablebridge/internal/model"
)

// ValidationResult contains structural findings for a predicate tree.
type ValidationResult struct {
	// Valid is true when no warnings were produced.
	Valid bool

	// Warnings lists the problems found, in traversal order.
	Warnings []string
}

// Validate checks a predicate tree for structural problems.
//
// Rules:
//  1. No nil nodes
//  2. Every leaf names a field
//  3. Combinators are non-empty
//  4. Equals values are scalars (string, number, bool, date)
//
// Field names are never checked against a schema; there is none.
// Validate is a pure function with no side effects.
func Validate(p Predicate) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validatePredicate(p)

	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		v.addWarning("nil predicate")
		return
	}

	switch pred := p.(type) {
	case Equals:
		v.checkField("Equals", pred.Field)
		v.validateScalar(pred)
	case Contains:
		v.checkField("Contains", pred.Field)
	case ArrayContains:
		v.checkField("ArrayContains", pred.Field)
	case DateEquals:
		v.checkField("DateEquals", pred.Field)
		if pred.Date.IsZero() {
			v.addWarning("DateEquals on %q has zero date", pred.Field)
		}
	case DateEqualsToday:
		v.checkField("DateEqualsToday", pred.Field)
	case And:
		v.validateGroup("And", pred.Predicates)
	case Or:
		v.validateGroup("Or", pred.Predicates)
	case Not:
		v.validatePredicate(pred.Predicate)
	default:
		v.addWarning("unknown predicate type: %T", p)
	}
}

func (v *validator) checkField(kind, field string) {
	if field == "" {
		v.addWarning("%s has empty field name", kind)
	}
}

func (v *validator) validateScalar(eq Equals) {
	switch eq.Value.(type) {
	case model.String, model.Number, model.Bool, model.Date:
	case nil:
		v.addWarning("Equals on %q has no value", eq.Field)
	default:
		v.addWarning("Equals on %q compares against non-scalar %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateGroup(kind string, preds []Predicate) {
	if len(preds) == 0 {
		v.addWarning("%s has no predicates", kind)
		return
	}
	for _, sub := range preds {
		v.validatePredicate(sub)
	}
}
