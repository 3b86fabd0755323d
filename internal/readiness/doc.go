// Package readiness implements the rendezvous between the control plane and
// the independently booting middleware process.
//
// A Gate polls an external readiness signal on its own goroutine, admits
// every waiter at once when the signal appears, and builds the guarded value
// exactly once. Callers arriving after the gate opened return immediately.
// When the poll budget is exhausted every pending waiter receives
// services.ErrTimedOut and the gate resets so a later Await polls again.
package readiness
