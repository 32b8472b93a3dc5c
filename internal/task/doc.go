// Package task runs recurring per-user background jobs, such as the
// automatic sync of a user's dynamic deck.
//
// Each installed (user, kind) pair owns one goroutine that fires the kind's
// handler once per period, starting after a random offset so that jobs
// installed together do not fire together. Cancelling a job prevents future
// firings but never interrupts a handler that is already running.
package task
