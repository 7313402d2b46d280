// Package fakestore is an in-memory HTTP server that speaks the subset of
// the Airtable REST and metadata APIs the table client uses.
//
// It exists so the client, the tool surface and the scenario harness can be
// exercised end to end without a network. Unlike a canned-response stub it
// keeps real state: records are created, patched and deleted, tables can be
// created and altered, and filterByFormula is evaluated by parsing the
// formula back into a predicate tree.
//
// Behaviour worth knowing:
//
//   - Tables are addressed by name or ID in record routes.
//   - maxRecords caps the result; pageSize (default 100) splits it and a
//     non-empty "offset" is returned when more records remain.
//   - PATCH merges fields. A null value clears a field.
//   - Unknown fields are rejected with 422 when the table declares a schema.
//   - Every request is counted; Requests exposes the log for assertions.
package fakestore
