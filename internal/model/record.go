package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Fields maps field names to cell values.
// Field order is irrelevant; use SortedKeys for deterministic iteration.
type Fields map[string]Value

// Get returns the value stored under name.
func (f Fields) Get(name string) (Value, bool) {
	v, ok := f[name]
	return v, ok
}

// Display returns the displayable text for a field.
//
// Lists yield their first element. An absent field, a null, an empty string
// and an empty list all yield fallback, so a missing lookup and an empty
// lookup are indistinguishable to the reader.
func (f Fields) Display(name, fallback string) string {
	v, ok := f[name]
	if !ok {
		return fallback
	}
	first, ok := First(v)
	if !ok {
		return fallback
	}
	s := first.Display()
	if s == "" {
		return fallback
	}
	return s
}

// SortedKeys returns field names in lexical order.
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Merge returns a copy of f with every entry of patch applied on top.
// Fields absent from patch keep their prior values.
func (f Fields) Merge(patch Fields) Fields {
	out := make(Fields, len(f)+len(patch))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// FieldsFromNative converts a plain map into Fields.
func FieldsFromNative(m map[string]any) (Fields, error) {
	out := make(Fields, len(m))
	for k, raw := range m {
		v, err := FromNative(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Native converts Fields into a plain map suitable for a request body.
func (f Fields) Native() map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = ToNative(v)
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler for Fields.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = make(Fields, len(raw))
	for k, v := range raw {
		val, err := DecodeValue(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		(*f)[k] = val
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Fields.
func (f Fields) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Native())
}

// Record is one row of a table.
// ID is assigned by the store on creation and never changes.
//
// A Record decoded from JSON keeps the bytes it was decoded from and
// marshals back to exactly those bytes, so timestamps and integers beyond
// float64 precision are relayed unchanged. Decoded records are read-only;
// build a new Record to change fields.
type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`

	wire json.RawMessage
}

// recordJSON has Record's fields without its methods.
type recordJSON struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// UnmarshalJSON implements json.Unmarshaler for Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var plain recordJSON
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	*r = Record{
		ID:          plain.ID,
		CreatedTime: plain.CreatedTime,
		Fields:      plain.Fields,
		wire:        append(json.RawMessage(nil), data...),
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Record.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.wire != nil {
		return r.wire, nil
	}
	return json.Marshal(recordJSON{ID: r.ID, CreatedTime: r.CreatedTime, Fields: r.Fields})
}
