// Package pipeline owns stream orchestration.
//
// Ownership boundary:
// - the sequential packetize→corrupt→clean→detect chain
// - decoupled, order-preserving archive delivery
// - prometheus instrumentation and combined diagnostics
//
// One Stream serves one telemetry stream; frames traverse the whole chain
// before the next is admitted. Independent streams are fully isolated and
// may run in parallel.
package pipeline
