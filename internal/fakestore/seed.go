package fakestore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tablebridge/internal/model"
)

// Seed is the initial content of a fake store.
//
// Example:
//
//	tables:
//	  - name: Tasks
//	    fields:
//	      - {name: Date, type: date}
//	      - {name: Assignee, type: multipleSelects}
//	    records:
//	      - {Date: "2026-10-16", Assignee: [Sato]}
type Seed struct {
	Tables []SeedTable `yaml:"tables" json:"tables"`
}

// SeedTable is one table with its schema and records.
type SeedTable struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []SeedField      `yaml:"fields,omitempty" json:"fields,omitempty"`
	Records     []map[string]any `yaml:"records,omitempty" json:"records,omitempty"`
}

// SeedField declares one column.
type SeedField struct {
	Name    string         `yaml:"name" json:"name"`
	Type    string         `yaml:"type" json:"type"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &seed, nil
}

// Load populates the store from a seed. Tables are created in order and
// records keep their listed order.
func (s *Server) Load(seed *Seed) error {
	if seed == nil {
		return nil
	}
	for i, st := range seed.Tables {
		if st.Name == "" {
			return fmt.Errorf("seed table %d: name is required", i)
		}
		schema := model.Table{Name: st.Name, Description: st.Description}
		for _, f := range st.Fields {
			typ := f.Type
			if typ == "" {
				typ = "singleLineText"
			}
			schema.Fields = append(schema.Fields, model.FieldSchema{Name: f.Name, Type: typ, Options: f.Options})
		}
		s.AddTable(schema)

		for j, raw := range st.Records {
			fields, err := model.FieldsFromNative(raw)
			if err != nil {
				return fmt.Errorf("seed table %s record %d: %w", st.Name, j, err)
			}
			if _, err := s.AddRecord(st.Name, fields); err != nil {
				return err
			}
		}
	}
	return nil
}
