// Package workflow defines the value types shared by every other package:
// nodes, edges, variables, log entries, data rows and the serialized graph
// document exchanged with the engine and the workflow API.
//
// All types are plain values. Deep copies are explicit (Clone) so that the
// history timeline can hold snapshots that later edits never reach.
package workflow
