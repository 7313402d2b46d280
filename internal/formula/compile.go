package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/tablebridge/internal/filterir"
	"github.com/roach88/tablebridge/internal/model"
)

// ErrEmptyQuery is returned by Build when no predicates were supplied and
// unfiltered queries were not explicitly allowed. Without it an empty
// request would silently fetch the whole table.
var ErrEmptyQuery = errors.New("no filter predicates supplied")

// Clock supplies the current time for DateEqualsToday resolution.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Compiler compiles filter predicates to formula strings.
//
// A Compiler is pure apart from reading Clock once per compilation; with a
// fixed clock its output is fully deterministic.
type Compiler struct {
	// Clock resolves "today". Defaults to SystemClock.
	Clock Clock

	// Location is the calendar "today" is taken in. Defaults to time.Local.
	Location *time.Location

	// AllowUnfiltered makes Build return an empty formula, rather than
	// ErrEmptyQuery, when given no predicates.
	AllowUnfiltered bool
}

// NewCompiler creates a Compiler using the wall clock and local calendar.
func NewCompiler() *Compiler {
	return &Compiler{
		Clock:    SystemClock{},
		Location: time.Local,
	}
}

// Today returns the current calendar day as midnight UTC.
// Only the date is significant; UTC keeps the value comparable.
func (c *Compiler) Today() time.Time {
	clock := c.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	y, m, d := clock.Now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Build combines predicates under AND and compiles the result.
//
// One predicate compiles to its own clause without an AND wrapper. Zero
// predicates return ErrEmptyQuery unless AllowUnfiltered is set, in which
// case the empty formula (no filter) is returned.
func (c *Compiler) Build(preds []filterir.Predicate) (string, error) {
	switch len(preds) {
	case 0:
		if c.AllowUnfiltered {
			return "", nil
		}
		return "", ErrEmptyQuery
	case 1:
		return c.Compile(preds[0])
	default:
		return c.Compile(filterir.And{Predicates: preds})
	}
}

// Compile converts a single predicate tree into a formula string.
func (c *Compiler) Compile(p filterir.Predicate) (string, error) {
	if p == nil {
		return "", fmt.Errorf("cannot compile nil predicate")
	}
	for _, field := range filterir.Fields(p) {
		if err := CheckFieldName(field); err != nil {
			return "", err
		}
	}
	return c.compilePredicate(c.Resolve(p))
}

// Resolve replaces every DateEqualsToday node with a DateEquals on the
// compiler's current day. The result compiles to the same formula.
func (c *Compiler) Resolve(p filterir.Predicate) filterir.Predicate {
	switch pred := p.(type) {
	case filterir.DateEqualsToday:
		return filterir.DateEquals{Field: pred.Field, Date: c.Today()}
	case filterir.And:
		return filterir.And{Predicates: c.resolveAll(pred.Predicates)}
	case filterir.Or:
		return filterir.Or{Predicates: c.resolveAll(pred.Predicates)}
	case filterir.Not:
		return filterir.Not{Predicate: c.Resolve(pred.Predicate)}
	default:
		return p
	}
}

func (c *Compiler) resolveAll(preds []filterir.Predicate) []filterir.Predicate {
	out := make([]filterir.Predicate, len(preds))
	for i, sub := range preds {
		out[i] = c.Resolve(sub)
	}
	return out
}

func (c *Compiler) compilePredicate(p filterir.Predicate) (string, error) {
	switch pred := p.(type) {
	case filterir.Equals:
		return c.compileEquals(pred)
	case filterir.Contains:
		return fmt.Sprintf("FIND(%s, %s) > 0", Quote(pred.Literal), FieldRef(pred.Field)), nil
	case filterir.ArrayContains:
		return fmt.Sprintf("FIND(%s, ARRAYJOIN(%s, ',')) > 0", Quote(pred.Literal), FieldRef(pred.Field)), nil
	case filterir.DateEquals:
		return compileDate(pred.Field, pred.Date), nil
	case filterir.And:
		return c.compileGroup("AND", pred.Predicates)
	case filterir.Or:
		return c.compileGroup("OR", pred.Predicates)
	case filterir.Not:
		if pred.Predicate == nil {
			return "", fmt.Errorf("NOT requires a predicate")
		}
		inner, err := c.compilePredicate(pred.Predicate)
		if err != nil {
			return "", err
		}
		return "NOT(" + inner + ")", nil
	case nil:
		return "", fmt.Errorf("cannot compile nil predicate")
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals renders the literal according to its value type.
func (c *Compiler) compileEquals(eq filterir.Equals) (string, error) {
	ref := FieldRef(eq.Field)
	switch val := eq.Value.(type) {
	case model.String:
		return ref + " = " + Quote(string(val)), nil
	case model.Number:
		return ref + " = " + strconv.FormatFloat(float64(val), 'f', -1, 64), nil
	case model.Bool:
		if val {
			return ref + " = TRUE()", nil
		}
		return ref + " = FALSE()", nil
	case model.Date:
		return compileDate(eq.Field, val.Time), nil
	default:
		return "", fmt.Errorf("field %q: unsupported literal type %T", eq.Field, eq.Value)
	}
}

func compileDate(field string, date time.Time) string {
	return fmt.Sprintf("IS_SAME(%s, %s, 'day')", FieldRef(field), Quote(date.Format(model.DateLayout)))
}

func (c *Compiler) compileGroup(fn string, preds []filterir.Predicate) (string, error) {
	if len(preds) == 0 {
		return "", fmt.Errorf("%s requires at least one predicate", fn)
	}
	parts := make([]string, 0, len(preds))
	for _, sub := range preds {
		s, err := c.compilePredicate(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return fn + "(" + strings.Join(parts, ", ") + ")", nil
}
