// Package transfer moves individual files into the flattened tree.
//
// Transfer performs one copy or move, optionally verifying the result with
// a sha256 content hash. RunAll drives a bounded pool of Transfer calls for
// one directory level and acts as the level's synchronization barrier.
//
// Faults never leave this package as raw errors from a worker: every
// failure is converted into an Outcome value carrying a human-readable
// detail string, and RunAll aggregates those into a single error for the
// level.
package transfer
