// Package protocol owns the node<->central wire contract.
//
// Ownership boundary:
// - envelope model and payload variants
// - bounded text encoding of envelopes
// - envelope parsing and ParseError reporting
//
// Sub-packages:
// - frame: the fixed 200-byte radio buffer
// - schema: payload key requirements per message type
// - session: registration control messages and timing defaults
package protocol
