// Package registry provides the central "glue" between the execution bridge
// and the capability modules.
//
// Each module registers a handler under the inbound event name the engine
// uses to request it (e.g. "execution:tts_request"), together with the event
// its result is sent on and a per-request deadline. Modules that hold a
// shared device also register a stopper so a stop-execution can silence them.
//
// During application startup, the registry is populated and then validated so
// an incomplete handler is caught before the first request arrives.
package registry
