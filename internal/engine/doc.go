// Package engine is the compiler facade.
//
// An Engine holds the domain experts in probe order. For each request it
// asks every expert CanHandle in turn and lets the first one that accepts
// compile the request. No other expert is ever asked to compile.
//
// Engines keep no per-request state: the experts and the knowledge they
// read are immutable, and every compilation allocates its own QueryIR.
// Compile may be called from any number of goroutines.
//
// Failures are *errors.CompileError values (possibly wrapped with hints):
//
//	INPUT_TOO_LONG        request exceeds the configured rune bound
//	UNRECOGNIZED_REQUEST  no expert accepted the request
//	NO_MATCHING_TEMPLATE  the expert found no report above the keyword threshold
//	UNRESOLVED_FIELD      a field is not part of the selected report
//	MALFORMED_VALUE       a value does not fit its field or operator
//
// A failed compilation never returns SQL.
package engine
