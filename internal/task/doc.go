// Package task manages background job queuing, processing, and lifecycle.
// Its one job today is the daily invite broadcast: an API trigger emits an
// event, the event handler builds an InviteBroadcastTask, and the worker
// pool fans the invite out to every authorized learner without blocking
// HTTP request handling. Delivery rows record per-learner progress so an
// operator can audit a broadcast after the fact.
package task
