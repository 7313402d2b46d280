// Package formula compiles filter predicates into the remote store's
// formula language (the filterByFormula query parameter) and parses such
// formulas back into predicates.
//
// Grammar emitted by the compiler:
//
//	Equals         {Field} = 'text' | {Field} = 12.5 | {Field} = TRUE()
//	Contains       FIND('text', {Field}) > 0
//	ArrayContains  FIND('text', ARRAYJOIN({Field}, ',')) > 0
//	DateEquals     IS_SAME({Field}, 'YYYY-MM-DD', 'day')
//	And / Or       AND(p1, p2, ...) / OR(p1, p2, ...)
//	Not            NOT(p)
//
// Every string literal is NFC-normalised and escaped before it is embedded,
// because literals originate from untrusted natural-language text. A literal
// can never terminate early and smuggle formula syntax into the query.
//
// The parser accepts exactly this grammar. It exists so that compiled
// formulas can be checked clause by clause, and so the in-memory fake store
// can evaluate the formulas clients send it.
package formula
