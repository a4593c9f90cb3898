// Package session owns node<->central registration session helpers.
//
// Ownership boundary:
// - registration control messages (register, register_response)
// - registration timing defaults
//
// The session is a one-way latch: once the central answers "registered"
// there is no de-registration message in the contract.
package session
