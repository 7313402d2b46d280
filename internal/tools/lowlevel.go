package tools

import (
	"context"

	"github.com/roach88/tablebridge/internal/airtable"
	"github.com/roach88/tablebridge/internal/model"
)

// TableClient is the subset of *airtable.Client the tools use.
type TableClient interface {
	Fetch(ctx context.Context, table string, opts airtable.FetchOptions) (*airtable.RecordPage, error)
	Insert(ctx context.Context, table string, fields map[string]any) (*model.Record, error)
	Patch(ctx context.Context, table, recordID string, fields map[string]any) (*model.Record, error)
	Remove(ctx context.Context, table, recordID string) (string, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	CreateTable(ctx context.Context, name string, fields []model.FieldSchema, description string) (*model.Table, error)
	AlterTable(ctx context.Context, tableID, newName string, fields []model.FieldSchema) (*model.Table, error)
	DropTable(ctx context.Context, tableID string) (string, error)
}

var _ TableClient = (*airtable.Client)(nil)

func fieldSchemaList(description string) *JSONSchema {
	return NewArraySchema(description, NewObjectSchema("Field definition", map[string]*JSONSchema{
		"name":        NewStringSchema("Field name").NonEmpty(),
		"type":        NewStringSchema("Field type, e.g. singleLineText, number, date, multipleSelects"),
		"description": NewStringSchema("Field description"),
		"options":     NewMapSchema("Type-specific options"),
	}, []string{"name", "type"}))
}

// GetRecordsTool lists records from a table (first page only).
type GetRecordsTool struct{ Client TableClient }

func (GetRecordsTool) Name() string { return "airtable_get_records" }

func (GetRecordsTool) Description() string {
	return "Fetch records from a table. Optionally filter with an Airtable formula, restrict to a view, limit the count or select fields."
}

func (GetRecordsTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"table_name":     NewStringSchema("Name of the table to query").NonEmpty(),
		"view":           NewStringSchema("Optional view name"),
		"filter_formula": NewStringSchema("Optional filterByFormula expression"),
		"max_records":    NewIntegerSchema("Maximum number of records to return").WithMinimum(1),
		"fields":         NewArraySchema("Only return these fields", NewStringSchema("")),
	}, []string{"table_name"})
}

func (t GetRecordsTool) Execute(ctx context.Context, args map[string]any) *Result {
	page, err := t.Client.Fetch(ctx, stringArg(args, "table_name"), airtable.FetchOptions{
		View:       stringArg(args, "view"),
		Filter:     stringArg(args, "filter_formula"),
		MaxRecords: intArg(args, "max_records"),
		Fields:     stringsArg(args, "fields"),
	})
	if err != nil {
		return Failure(err)
	}
	data := map[string]any{"records": page.Records}
	if page.Offset != "" {
		data["offset"] = page.Offset
	}
	return Success(data)
}

// CreateRecordTool inserts one record.
type CreateRecordTool struct{ Client TableClient }

func (CreateRecordTool) Name() string { return "airtable_create_record" }

func (CreateRecordTool) Description() string {
	return "Create a single record. fields maps field names to values."
}

func (CreateRecordTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"table_name": NewStringSchema("Target table").NonEmpty(),
		"fields":     NewMapSchema("Field name to value"),
	}, []string{"table_name", "fields"})
}

func (t CreateRecordTool) Execute(ctx context.Context, args map[string]any) *Result {
	rec, err := t.Client.Insert(ctx, stringArg(args, "table_name"), mapArg(args, "fields"))
	if err != nil {
		return Failure(err)
	}
	return Success(map[string]any{"record": rec})
}

// UpdateRecordTool patches the given fields of one record.
type UpdateRecordTool struct{ Client TableClient }

func (UpdateRecordTool) Name() string { return "airtable_update_record" }

func (UpdateRecordTool) Description() string {
	return "Update some fields of a record. Fields not listed keep their values."
}

func (UpdateRecordTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"table_name": NewStringSchema("Target table").NonEmpty(),
		"record_id":  NewStringSchema("Record ID (rec...)").NonEmpty(),
		"fields":     NewMapSchema("Fields to change"),
	}, []string{"table_name", "record_id", "fields"})
}

func (t UpdateRecordTool) Execute(ctx context.Context, args map[string]any) *Result {
	rec, err := t.Client.Patch(ctx, stringArg(args, "table_name"), stringArg(args, "record_id"), mapArg(args, "fields"))
	if err != nil {
		return Failure(err)
	}
	return Success(map[string]any{"record": rec})
}

// DeleteRecordTool removes one record.
type DeleteRecordTool struct{ Client TableClient }

func (DeleteRecordTool) Name() string { return "airtable_delete_record" }

func (DeleteRecordTool) Description() string { return "Delete a record from a table." }

func (DeleteRecordTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"table_name": NewStringSchema("Target table").NonEmpty(),
		"record_id":  NewStringSchema("Record ID (rec...)").NonEmpty(),
	}, []string{"table_name", "record_id"})
}

func (t DeleteRecordTool) Execute(ctx context.Context, args map[string]any) *Result {
	id, err := t.Client.Remove(ctx, stringArg(args, "table_name"), stringArg(args, "record_id"))
	if err != nil {
		return Failure(err)
	}
	return Success(map[string]any{"deleted_record_id": id})
}

// ListTablesTool returns every table's schema.
type ListTablesTool struct{ Client TableClient }

func (ListTablesTool) Name() string { return "airtable_list_tables" }

func (ListTablesTool) Description() string {
	return "List the tables of the base with their IDs and fields. Use it when unsure about table or field names."
}

func (ListTablesTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", nil, nil)
}

func (t ListTablesTool) Execute(ctx context.Context, _ map[string]any) *Result {
	tables, err := t.Client.ListTables(ctx)
	if err != nil {
		return Failure(err)
	}
	return Success(map[string]any{"tables": tables})
}

// CreateTableTool creates a table by name.
type CreateTableTool struct{ Client TableClient }

func (CreateTableTool) Name() string { return "airtable_create_table" }

func (CreateTableTool) Description() string {
	return "Create a new table in the base. The first field becomes the primary field."
}

func (CreateTableTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"table_name":  NewStringSchema("Name of the new table").NonEmpty(),
		"fields":      fieldSchemaList("Field definitions"),
		"description": NewStringSchema("Optional table description"),
	}, []string{"table_name", "fields"})
}

func (t CreateTableTool) Execute(ctx context.Context, args map[string]any) *Result {
	var fields []model.FieldSchema
	if err := decodeArg(args, "fields", &fields); err != nil {
		return Failure(airtable.NewInvalidArgument(t.Name(), err.Error()))
	}
	tbl, err := t.Client.CreateTable(ctx, stringArg(args, "table_name"), fields, stringArg(args, "description"))
	if err != nil {
		return Failure(err)
	}
	return Success(map[string]any{"table": tbl})
}

// UpdateTableTool renames a table and/or changes its fields.
type UpdateTableTool struct{ Client TableClient }

func (UpdateTableTool) Name() string { return "airtable_update_table" }

func (UpdateTableTool) Description() string {
	return "Rename a table and/or update its fields. Tables are addressed by ID (tbl...). Provide at least new_name or fields."
}

func (UpdateTableTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"table_id": NewStringSchema("Table ID (tbl...)").NonEmpty(),
		"new_name": NewStringSchema("New table name"),
		"fields":   fieldSchemaList("Updated field definitions"),
	}, []string{"table_id"})
}

func (t UpdateTableTool) Execute(ctx context.Context, args map[string]any) *Result {
	var fields []model.FieldSchema
	if err := decodeArg(args, "fields", &fields); err != nil {
		return Failure(airtable.NewInvalidArgument(t.Name(), err.Error()))
	}
	tbl, err := t.Client.AlterTable(ctx, stringArg(args, "table_id"), stringArg(args, "new_name"), fields)
	if err != nil {
		return Failure(err)
	}
	return Success(map[string]any{"table": tbl})
}

// DeleteTableTool permanently deletes a table.
type DeleteTableTool struct{ Client TableClient }

func (DeleteTableTool) Name() string { return "airtable_delete_table" }

func (DeleteTableTool) Description() string {
	return "Permanently delete a table, addressed by ID (tbl...)."
}

func (DeleteTableTool) InputSchema() *JSONSchema {
	return NewObjectSchema("", map[string]*JSONSchema{
		"table_id": NewStringSchema("Table ID (tbl...)").NonEmpty(),
	}, []string{"table_id"})
}

func (t DeleteTableTool) Execute(ctx context.Context, args map[string]any) *Result {
	id, err := t.Client.DropTable(ctx, stringArg(args, "table_id"))
	if err != nil {
		return Failure(err)
	}
	return Success(map[string]any{"deleted_table_id": id})
}
