// Package coordinator serializes discovery.
//
// Live filesystem events ([Coordinator.HandleCreate]) and the periodic
// scan ([Coordinator.Scan]) share one record store, its dedup index, and
// the flush timer. For each candidate path the coordinator holds a single
// mutex across the whole sequence: index lookup, the ingestion pipeline
// (settle delays included), the re-check, the append and the index update.
// The first writer for a path wins.
//
// New records are saved to the journal under the lock. Rendering and
// publishing run later on the flush scheduler's goroutine from a snapshot
// of the records and never hold the lock.
package coordinator
