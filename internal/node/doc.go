// Package node owns the device-side state machine.
//
// Ownership boundary:
// - device identity (hardware address, device id)
// - registration latch (unregistered -> registered, never back)
// - command dispatch onto the LED actuator
// - runtime loop draining radio events between ticks
//
// All state is mutated from the goroutine that calls Tick and HandleFrame.
// Snapshot may be called from anywhere.
package node
