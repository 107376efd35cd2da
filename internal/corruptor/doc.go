// Package corruptor owns the simulated link degradation.
//
// Ownership boundary:
// - packet loss draws
// - per-field corruption mode selection and application
// - delivery-time jitter
// - observed loss/corruption rate accounting
//
// The corruptor only ever mutates a structural copy of its input.
package corruptor
