// Package events provides the event bus that decouples request handling
// from background work.
//
// The admin API emits a TaskRequestEvent when a broadcast is triggered;
// a handler in the task package turns it into a queued task. Neither side
// imports the other, so the API layer stays free of worker machinery and
// the task package stays free of HTTP concerns.
//
// The primary components are:
// - TaskRequestEvent: Represents a request to create a background task
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
