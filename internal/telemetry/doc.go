// Package telemetry owns the data model shared across pipeline stages.
//
// Ownership boundary:
// - raw frame and clean frame shapes
// - repair provenance and the closed repair-method set
// - anomaly records and their kind/severity enums
//
// Stages never extend these types; they attach metadata through them.
package telemetry
