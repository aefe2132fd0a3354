// Package domain holds the types shared by every stage of the BUFR
// observation pipeline.
//
// # Data Source
//
// Upstream decoders (ecCodes based) unpack WMO FM-94 BUFR messages and
// publish them to Kafka as JSON: a header block plus the data section keys
// in document order. Each data key carries a rank prefix ("#2#latitude"), its
// descriptor code ("005001") and its units. One message holds one or more
// subsets; compressed messages store one value array per key with one slot
// per subset.
//
// # Missing Values
//
// BUFR encodes "missing" as all-ones bit patterns that decoders surface as
// the sentinels -1e100 (floating) and 2147483647 (integer). Both map to a nil
// value in an [Observation].
//
// # Observations
//
// An [Observation] is an ordered key/value record produced by walking the
// implicit coordinate tree of a subset. Keys shared by sibling leaves
// (station, date, position) are inserted once and reused until a sibling
// transition pops them.
package domain
