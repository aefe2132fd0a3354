// Package filter compiles value filter specifications into matchers.
//
// A specification is whatever a caller can naturally write down: a scalar or
// a list of accepted values, a [Range], a predicate function, or a WIGOS
// station identifier in any of its representations. Specifications are
// validated once by [Compile]; the resulting [Filter] is immutable and shared
// by every observation of a run. A nil value (missing data) never matches.
package filter
