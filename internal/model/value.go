package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Value is a sealed interface representing a single cell value.
// Only Null, String, Number, Bool, Date, List and Object implement it.
type Value interface {
	value() // Sealed - only these types implement it

	// Display renders the value as plain text.
	Display() string
}

// Null represents an explicit JSON null.
type Null struct{}

func (Null) value() {}

// Display returns the empty string.
func (Null) Display() string { return "" }

// String represents a text cell.
type String string

func (String) value() {}

// Display returns the string unchanged.
func (s String) Display() string { return string(s) }

// Number represents a numeric cell. The remote API does not distinguish
// integers from decimals, so every number is a float64.
type Number float64

func (Number) value() {}

// Display renders the number without a trailing ".0" for whole values.
func (n Number) Display() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Bool represents a checkbox cell.
type Bool bool

func (Bool) value() {}

// Display returns "true" or "false".
func (b Bool) Display() string { return strconv.FormatBool(bool(b)) }

// Date represents a date or date-time cell.
// DateOnly is set when the wire value carried no time component.
type Date struct {
	Time     time.Time
	DateOnly bool
}

func (Date) value() {}

// Display renders YYYY-MM-DD for date cells and RFC 3339 otherwise.
func (d Date) Display() string {
	if d.DateOnly {
		return d.Time.Format(DateLayout)
	}
	return d.Time.Format(time.RFC3339)
}

// List represents a multi-valued cell: multiple selects, linked records,
// lookups and rollups.
type List []Value

func (List) value() {}

// Display joins the rendered elements with ", ".
func (l List) Display() string {
	return l.Join(", ")
}

// Join renders the elements separated by sep.
func (l List) Join(sep string) string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.Display()
	}
	return strings.Join(parts, sep)
}

// Object represents a structured cell such as a collaborator or attachment.
type Object map[string]Value

func (Object) value() {}

// displayKeys are tried in order when rendering an Object.
var displayKeys = []string{"name", "email", "filename", "url", "id"}

// Display renders the most human-meaningful member of the object.
func (o Object) Display() string {
	for _, k := range displayKeys {
		if v, ok := o[k]; ok {
			if s := v.Display(); s != "" {
				return s
			}
		}
	}
	keys := o.SortedKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+o[k].Display())
	}
	return strings.Join(parts, " ")
}

// SortedKeys returns the object's keys in lexical order.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DateLayout is the day-granularity layout used on the wire and in formulas.
const DateLayout = "2006-01-02"

// IsEmpty reports whether v carries nothing displayable: nil, Null, an
// empty string or an empty list.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return true
	case String:
		return val == ""
	case List:
		return len(val) == 0
	default:
		return false
	}
}

// First returns the first element of a list, or v itself for scalars.
// Lookup and rollup fields routinely arrive as single-element lists.
func First(v Value) (Value, bool) {
	if l, ok := v.(List); ok {
		if len(l) == 0 {
			return nil, false
		}
		return l[0], true
	}
	if IsEmpty(v) {
		return nil, false
	}
	return v, true
}

// DecodeValue decodes a JSON cell into a Value.
// Strings that look like ISO dates or RFC 3339 timestamps become Date.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromNative(raw)
}

// FromNative converts a decoded JSON or YAML value into a Value.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return parseString(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Number(f), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case time.Time:
		return Date{Time: val}, nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	case []string:
		list := make(List, len(val))
		for i, s := range val {
			list[i] = parseString(s)
		}
		return list, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			item, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = item
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported cell type: %T", v)
	}
}

// parseString recognises the two date shapes the remote API emits.
func parseString(s string) Value {
	if len(s) == len(DateLayout) {
		if t, err := time.Parse(DateLayout, s); err == nil {
			return Date{Time: t, DateOnly: true}
		}
	}
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return Date{Time: t}
		}
	}
	return String(s)
}

// ToNative converts a Value back into plain Go types suitable for JSON
// encoding.
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case Date:
		return val.Display()
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToNative(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToNative(elem)
		}
		return out
	default:
		return nil
	}
}

// MarshalValue marshals a Value to JSON bytes.
func MarshalValue(v Value) ([]byte, error) {
	return json.Marshal(ToNative(v))
}
