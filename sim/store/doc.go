// Package store persists recorded simulation histories in SQLite.
//
// The engine never calls this package; the CLI hands it a finished
// trace.SimulationTrace after a run. Each run is identified by a UUIDv7 so
// that run listings sort chronologically by ID.
package store
