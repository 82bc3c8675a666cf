// Package sync keeps the paludarium aggregate consistent between memory, the
// local durable store and the remote repository.
//
// # Overview
//
// A Store owns the aggregate (water readings, day template, settings). Every
// named update changes memory, writes the local store and then pushes the
// three documents to the remote:
//
//	Store (memory)
//	     ├── localstore          → always written first
//	     └── remote              → data/water.json
//	                               data/dayTemplate.json
//	                               data/settings.json
//
// # Loading
//
// Load installs the local copy, then fetches the remote documents in
// parallel. Remote water and day template replace memory only when they hold
// data; remote settings are merged over the local ones. A remote that cannot
// be reached leaves the local copy in place and the outcome is LocalOnly.
//
// # Saving
//
// Save is guarded against re-entry: a call while another save runs returns
// Skipped. Each document is written with the revision read just before; a
// stale revision (409) is retried with exponential backoff.
//
// # Auto-sync
//
// StartAutoSync schedules CheckForUpdates, which compares a digest of the
// aggregate with the digest taken at the last successful exchange. An
// unchanged digest means no local edits, so the remote is pulled; a changed
// digest means local edits, so the aggregate is pushed.
//
// A pull that lands while a local edit is being pushed can overwrite that
// edit in memory. The window is one auto-sync tick and the edit is already in
// the local store.
//
// # Listeners
//
// Listeners registered with Subscribe are called after every change,
// outside the store lock, with deep copies of the data.
package sync
