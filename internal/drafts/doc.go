// Package drafts persists the workflow being edited so unsaved work survives
// a restart.
//
// # Backends
//
//   - MemoryStore keeps drafts for the lifetime of the process. It is the
//     default and what tests use.
//   - RedisStore keeps drafts in Redis under a key prefix, with an optional
//     expiry, so several clients on one machine or a restarted client can
//     pick them up.
//
// The Autosaver polls the graph store's revision counter and writes a new
// draft only when the document changed since the last save.
package drafts
