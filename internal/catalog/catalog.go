// Package catalog holds the table and field names the high-level tools
// query. The remote schema has changed names across revisions, so names
// are data loaded at startup rather than literals in code.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tablebridge/internal/formula"
	"github.com/roach88/tablebridge/internal/render"
)

//go:embed default.yaml
var defaultYAML []byte

// Catalog maps conceptual entities onto concrete tables and fields.
type Catalog struct {
	Tasks    TaskCatalog              `yaml:"tasks" json:"tasks"`
	Entities map[string]EntityCatalog `yaml:"entities" json:"entities"`
}

// TaskCatalog names the work-log table used by the task tools.
type TaskCatalog struct {
	Table         string           `yaml:"table" json:"table"`
	DateField     string           `yaml:"date_field" json:"date_field"`
	AssigneeField string           `yaml:"assignee_field" json:"assignee_field"`
	MaxRecords    int              `yaml:"max_records,omitempty" json:"max_records,omitempty"`
	Display       render.FieldSpec `yaml:"display" json:"display"`
}

// EntityCatalog names a searchable master-data table.
type EntityCatalog struct {
	Table       string           `yaml:"table" json:"table"`
	SearchField string           `yaml:"search_field" json:"search_field"`
	MaxRecords  int              `yaml:"max_records,omitempty" json:"max_records,omitempty"`
	Display     render.FieldSpec `yaml:"display" json:"display"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	cat, err := parseYAML(defaultYAML, "default.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return cat
}

// Entity looks up an entity by case-insensitive name.
func (c *Catalog) Entity(name string) (EntityCatalog, bool) {
	e, ok := c.Entities[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}

// EntityNames returns entity names in lexical order.
func (c *Catalog) EntityNames() []string {
	names := make([]string, 0, len(c.Entities))
	for name := range c.Entities {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate reports every missing table or field name and every field name
// a filter formula cannot reference.
func (c *Catalog) Validate() error {
	var errs []error
	if c.Tasks.Table == "" {
		errs = append(errs, errors.New("tasks: table is required"))
	}
	if c.Tasks.DateField == "" {
		errs = append(errs, errors.New("tasks: date_field is required"))
	}
	if c.Tasks.AssigneeField == "" {
		errs = append(errs, errors.New("tasks: assignee_field is required"))
	}
	for _, field := range []string{c.Tasks.DateField, c.Tasks.AssigneeField} {
		if err := formula.CheckFieldName(field); err != nil {
			errs = append(errs, fmt.Errorf("tasks: %w", err))
		}
	}
	if c.Tasks.MaxRecords < 0 {
		errs = append(errs, errors.New("tasks: max_records must not be negative"))
	}
	for _, name := range c.EntityNames() {
		e := c.Entities[name]
		if name != strings.ToLower(name) {
			errs = append(errs, fmt.Errorf("entities.%s: name must be lower case", name))
		}
		if e.Table == "" {
			errs = append(errs, fmt.Errorf("entities.%s: table is required", name))
		}
		if e.SearchField == "" {
			errs = append(errs, fmt.Errorf("entities.%s: search_field is required", name))
		}
		if err := formula.CheckFieldName(e.SearchField); err != nil {
			errs = append(errs, fmt.Errorf("entities.%s: %w", name, err))
		}
		if e.MaxRecords < 0 {
			errs = append(errs, fmt.Errorf("entities.%s: max_records must not be negative", name))
		}
	}
	return errors.Join(errs...)
}
