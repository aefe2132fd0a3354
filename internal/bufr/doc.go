// Package bufr is the narrow seam between the observation engine and the
// external BUFR decoder.
//
// The engine never touches bits or descriptor tables. It needs an ordered
// list of keys per message, a lookup from key to decoded value, and, for each
// key, the descriptor code used to tell coordinates from measurements. Any
// type with Keys and Get satisfies [Message]; optional capabilities such as
// unpacking or explicit release are discovered by type assertion and
// synthesized by [Wrap] when absent.
//
// Decoded messages travel between services in a JSON wire form, see
// [DecodeJSON].
package bufr
