package model

// Table describes a table's schema as reported by the metadata API.
// Update and delete operations address tables by ID; create uses Name.
type Table struct {
	ID             string        `json:"id,omitempty"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	PrimaryFieldID string        `json:"primaryFieldId,omitempty"`
	Fields         []FieldSchema `json:"fields"`
}

// FieldSchema describes one column.
type FieldSchema struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// FieldNames returns the names of the table's fields in schema order.
func (t Table) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}
