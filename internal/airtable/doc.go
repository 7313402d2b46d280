// Package airtable is a small client for an Airtable-style REST record
// store: record CRUD against named tables and schema CRUD against table IDs.
//
// # Behaviour
//
// Every operation is one blocking HTTP round trip bounded by the configured
// timeout. There is no retry, no backoff and no pagination: Fetch returns
// only the first page the server sends, with the continuation Offset
// surfaced on the result so callers can tell more records exist.
//
// Table creation takes a name; table update and delete take the table ID.
// The asymmetry mirrors the remote metadata API.
//
// # Errors
//
// All failures are *Error values with a Kind:
//
//   - KindRemoteAPI: non-2xx response, carries StatusCode and raw Body
//   - KindNetwork: connection failure or timeout
//   - KindInvalidArgument: rejected before any request is sent
//   - KindEmptyQuery: a filtered query had no filter
//   - KindConfigurationMissing: New was given an incomplete Config
package airtable
