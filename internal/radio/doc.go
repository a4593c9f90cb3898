// Package radio owns the transport adapter between the node and its radio
// stack.
//
// Ownership boundary:
// - radio driver contract (init, peers, fire-and-forget send, callbacks)
// - adapter lifecycle (uninitialized -> ready, init failure is fatal)
// - copying callback buffers onto a bounded event queue
// - send-failure recovery (re-add peer, drop the message)
//
// Drivers live in subpackages: stub for tests, udp for host simulation.
package radio
