// Package cleaner owns validation and repair of received packets.
//
// Ownership boundary:
// - lost-packet synthesis from rolling history
// - per-field repair policy, evaluated in strict priority order
// - quality tiering and repair provenance
// - post-repair history maintenance
//
// Expected link degradation is data here, never an error. Only
// insufficient-context synthesis and strict-mode ordering violations
// surface as errors to the caller.
package cleaner
