// Package events defines the notification contract between the client
// subsystem and the UI/log collaborator. The client emits structured events
// on state transitions; how they are rendered is up to the receiver.
package events

import "time"

// Type identifies the kind of state transition being reported.
type Type string

const (
	// TypeOffline is emitted when the client enters offline mode.
	TypeOffline Type = "offline.entered"

	// TypeOnline is emitted when the client recovers to online mode.
	TypeOnline Type = "offline.exited"

	// TypeConflict is emitted when a branch conflict is detected.
	TypeConflict Type = "conflict.detected"

	// TypeDeployment is emitted when a watched deployment changes state.
	TypeDeployment Type = "deployment.transition"
)

// Event is a single structured state-transition notification.
type Event struct {
	// Type is the transition kind.
	Type Type

	// Message is a short human-readable description.
	Message string

	// At is when the transition occurred.
	At time.Time

	// Fields carries transition-specific detail (branch names, commit
	// SHAs, counts) without forcing a type per event kind.
	Fields map[string]string
}

// Notifier receives structured events. Implementations must be safe for
// concurrent use and must not block; slow consumers should buffer.
type Notifier interface {
	Notify(event Event)
}

// ProgressFunc receives progress callbacks during long operations.
// Percentage is 0-100.
type ProgressFunc func(percentage int, message string)

// NopNotifier discards all events.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Event) {}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(e Event) { f(e) }
