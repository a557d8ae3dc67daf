// Package memory provides the in-memory key-value store behind respkv.
//
// Keys and values are strings. A key may carry an expiry deadline in
// milliseconds since the Unix epoch. Reads filter out expired entries but
// leave them in place; only the optional background janitor removes them
// (see RunJanitor).
//
// Thread Safety:
//
// All operations are serialized by a single mutex, so SET and GET on the
// same key never observe a partial write.
//
// The store also holds the node's replication identity: its role, listening
// port, and the fixed replication id and offset reported by INFO and PSYNC.
package memory
