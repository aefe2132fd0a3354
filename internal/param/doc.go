// Package param maps extracted observations to named output columns.
//
// An Accessor knows which raw keys it reads and how to turn them into one or
// more labelled columns: a Simple accessor copies a single key with optional
// type coercion and unit conversion, a Computed accessor combines several
// keys (date/time, WMO station number, WIGOS identifier, position, CRS), a
// Qualified accessor decorates a value with its measurement period and
// sensor height, and a Fallback picks the first accessor that yields data.
//
// Accessors are looked up by label in a Registry. Registries are plain values:
// NewDefaultRegistry returns one pre-populated with common surface parameters
// and LoadYAML adds definitions from a file.
package param
