// Package filterir provides the predicate tree used to select records
// server-side.
//
// The tree sits between the tool layer, which turns loosely-structured
// natural-language arguments into predicates, and the formula compiler,
// which serialises predicates into the remote store's formula grammar:
//
//	[tool arguments] → [filter IR] → [formula string]
//	                               → [in-memory evaluation] (fake store)
//
// SEALED INTERFACE:
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package implement it, so compilers and evaluators can use
// exhaustive type switches:
//
//	switch p := pred.(type) {
//	case Equals:
//	    // field = literal
//	case And:
//	    // conjunction
//	default:
//	    // unreachable for well-formed trees
//	}
//
// Field names are opaque. Nothing in this package knows which fields a
// table has; a misspelt field simply matches nothing remotely.
package filterir
