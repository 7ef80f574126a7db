package eventbus

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrHandlerFailure marks an error returned (or panic raised) by a single
	// handler during delivery.
	ErrHandlerFailure = errors.New("event handler failed")
	// ErrNilEvent indicates a nil event was handed to Publish or PublishImmediate.
	ErrNilEvent = errors.New("event is nil")
	// ErrPayloadType indicates a typed handler received a payload of another Go type.
	ErrPayloadType = errors.New("event payload has unexpected type")
)

// Type is the stable routing tag of an event kind, e.g. "quest.completed".
type Type string

// Event is any payload that exposes a stable type tag. EventType must not
// depend on receiver state: typed subscriptions call it on a zero value.
type Event interface {
	EventType() Type
}

// Envelope is the read-only view of one delivery handed to handlers.
type Envelope struct {
	Type     Type
	Priority Priority
	// Filter is the tag the publisher targeted, empty when none.
	Filter string
	// Filtered reports whether this delivery came through the (type, filter)
	// bucket rather than the type's global bucket.
	Filtered bool
	// Seq is the bus-wide publication sequence number.
	Seq     uint64
	Payload Event
}

// Handler consumes one delivery. A returned error is isolated and logged;
// it never reaches the publisher's siblings.
type Handler func(Envelope) error

// Subscription identifies a registered handler.
type Subscription struct {
	ID     uuid.UUID
	Type   Type
	Filter string
}

// HandlerError describes one isolated handler failure.
type HandlerError struct {
	Subscription Subscription
	Type         Type
	Seq          uint64
	Err          error
	Panicked     bool
}

func (e *HandlerError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("eventbus: handler %s for %q panicked: %v", e.Subscription.ID, e.Type, e.Err)
	}
	return fmt.Sprintf("eventbus: handler %s for %q failed: %v", e.Subscription.ID, e.Type, e.Err)
}

// Unwrap exposes both the failure class and the underlying cause.
func (e *HandlerError) Unwrap() []error {
	return []error{ErrHandlerFailure, e.Err}
}

// Stats is a point-in-time copy of the bus counters.
type Stats struct {
	Published uint64
	Delivered uint64
	Failures  uint64
}
