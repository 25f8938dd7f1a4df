// Package settings persists small hierarchical configuration records.
//
// A Record is a JSON-shaped map (strings, bools, numbers, nested maps)
// stored under a slash-separated key such as "adapters/<identity>". The
// tuner manager keeps one record per device so the signal-type override and
// per-frontend settings survive restarts.
//
// Two Store implementations are provided:
//   - SQLiteStore keeps records in the settings table (see migrations/)
//   - MemoryStore keeps records in process, for tests and throwaway runs
//
// Both encode through JSON, so a loaded Record always holds float64 numbers
// and map[string]any children regardless of what was saved. Use the Get
// helpers rather than type-asserting directly.
package settings
