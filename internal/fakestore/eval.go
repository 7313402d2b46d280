package fakestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/tablebridge/internal/filterir"
	"github.com/roach88/tablebridge/internal/model"
)

// Match reports whether fields satisfy p.
//
// Comparison follows the formula language loosely: Equals compares text for
// strings, numerically for numbers, and treats an absent checkbox as false.
// Multi-valued cells compare against their comma-joined text. today is
// consulted only for DateEqualsToday.
func Match(p filterir.Predicate, fields model.Fields, today time.Time) (bool, error) {
	switch pred := p.(type) {
	case filterir.Equals:
		return matchEquals(pred, fields)
	case filterir.Contains:
		return strings.Contains(cellText(fields[pred.Field], ", "), pred.Literal), nil
	case filterir.ArrayContains:
		return strings.Contains(cellText(fields[pred.Field], ","), pred.Literal), nil
	case filterir.DateEquals:
		return sameDay(fields[pred.Field], pred.Date), nil
	case filterir.DateEqualsToday:
		return sameDay(fields[pred.Field], today), nil
	case filterir.And:
		for _, sub := range pred.Predicates {
			ok, err := Match(sub, fields, today)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case filterir.Or:
		for _, sub := range pred.Predicates {
			ok, err := Match(sub, fields, today)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case filterir.Not:
		ok, err := Match(pred.Predicate, fields, today)
		return !ok, err
	default:
		return false, fmt.Errorf("cannot evaluate predicate type %T", p)
	}
}

func matchEquals(eq filterir.Equals, fields model.Fields) (bool, error) {
	cell := fields[eq.Field]
	switch want := eq.Value.(type) {
	case model.String:
		return cellText(cell, ", ") == string(want), nil
	case model.Number:
		first, ok := model.First(cell)
		if !ok {
			return false, nil
		}
		n, isNum := first.(model.Number)
		return isNum && n == want, nil
	case model.Bool:
		got := false
		if b, ok := cell.(model.Bool); ok {
			got = bool(b)
		}
		return got == bool(want), nil
	case model.Date:
		return sameDay(cell, want.Time), nil
	default:
		return false, fmt.Errorf("field %q: cannot compare against %T", eq.Field, eq.Value)
	}
}

// cellText renders a cell the way formula string functions see it.
func cellText(v model.Value, sep string) string {
	switch val := v.(type) {
	case nil, model.Null:
		return ""
	case model.List:
		return val.Join(sep)
	default:
		return val.Display()
	}
}

func sameDay(v model.Value, day time.Time) bool {
	first, ok := model.First(v)
	if !ok {
		return false
	}
	d, ok := first.(model.Date)
	if !ok {
		return false
	}
	return d.Time.UTC().Format(model.DateLayout) == day.Format(model.DateLayout)
}
