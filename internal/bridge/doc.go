// Package bridge connects the local workflow state to the remote execution
// engine. It consumes the engine's telemetry, services capability requests
// through the registry and sends control commands back.
//
// All inbound events are processed by one dispatcher goroutine in arrival
// order. Capability handlers run on their own goroutines and every request
// receives exactly one correlated result.
package bridge
