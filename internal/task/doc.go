// Package task tracks crawl tasks from submission to a terminal state.
//
// A Registry holds one immutable Record snapshot per task and replaces it
// wholesale on every transition, so readers always see a consistent record.
// The Executor runs each submitted task on its own goroutine with its own
// cancellable context, drives the record through
// pending -> running -> {completed, failed, stopped}, and releases the job,
// the record store and the context on every exit path.
//
// Stopping a task is advisory: the record becomes stopped immediately and
// the task context is cancelled, but the crawler is free to keep running
// until it returns. Its late outcome is discarded because a terminal record
// never changes again.
package task
