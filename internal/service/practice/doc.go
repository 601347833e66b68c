// Package practice implements the task lifecycle coordinator behind the
// conversational tutor: it turns bot commands and learner responses into
// state transitions over task records, objective history, and learner
// profiles.
//
// One interaction is one stateless invocation. The coordinator reads
// committed state, drives the issue path (select type, pick an unseen
// objective, generate content, commit the pending record and its history
// entry in one transaction) or the completion path (evaluate against the
// parameters snapshotted at issue time, settle the record exactly once),
// and returns a delivery-ready reply. Concurrency between invocations is
// resolved by the stores' compare-and-swap semantics, retried here with
// bounded jittered backoff.
//
// Abandonment is lazy: there is no background scheduler, so any interaction
// that observes a pending record older than the configured window settles
// it as abandoned before proceeding.
package practice
