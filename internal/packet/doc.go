// Package packet owns the transmission packet contract.
//
// Ownership boundary:
// - packet header/payload/footer shapes
// - canonical content encoding, checksum, and size estimate
// - priority assignment rules
// - per-packetizer sequencing and statistics
package packet
