// Package events carries task lifecycle notifications from the executor to
// whoever is interested in them, without the executor knowing the
// receivers.
//
// The primary components are:
//   - TaskEvent: one status transition of one task
//   - EventHandler / EventEmitter: the publish side and the receive side
//   - History: a handler that keeps the most recent transitions per task
//
// Delivery is synchronous and best effort. A failing handler does not stop
// the others and never affects the task.
package events
