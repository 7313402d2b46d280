// Package model provides the record-store data types shared by every other
// package: the Value tagged union, Record, Table and FieldSchema.
//
// This package contains type definitions and JSON codecs only. It imports
// nothing internal.
//
// Key design constraints:
//   - Cell values are decoded into a closed set of Value variants, never
//     left as interface{} maps
//   - Reading a field never fails: absence, null and empty lookup lists all
//     collapse to a caller-supplied fallback token
//   - Table and field names are opaque strings; there is no schema awareness
package model
