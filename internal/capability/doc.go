// Package capability implements the client-local services the engine can
// request during a run: speech synthesis, sandboxed script evaluation, audio
// playback and interactive prompts.
//
// Executors know nothing about the wire protocol. Each call services one
// request and returns one outcome; speech and audio share the exclusive Slot
// semantics where the newest request wins.
package capability
