// Package repositories implements the key-value media that persist the session credential pair.
//
// Every medium implements [Medium]: a flat string-to-string store where a missing key is a
// normal result (found == false), never an error.
//
// Key Implementations:
//   - [SQLiteMedium] : Rows in the kv_store table created by shared migrations (default)
//   - [RedisMedium] : Plain redis strings under a configurable key prefix
//   - [MemoryMedium] : A mutex-guarded map for tests and the "memory" storage driver
//
// [Open] selects a medium from [shared.Config] the way the CLI does.
package repositories
