// Package events broadcasts change notifications so connected clients can refresh
// lists and counters without polling.
package events

import (
	"sync"
	"time"
)

// Type names a change notification.
type Type string

// Change notifications.
const (
	UserRegistered Type = "user_registered"
	UserDeleted    Type = "user_deleted"
	PostCreated    Type = "post_created"
	PostUpdated    Type = "post_updated"
	PostDeleted    Type = "post_deleted"
	ReplyAdded     Type = "reply_added"
	ProductCreated Type = "product_created"
	ProductUpdated Type = "product_updated"
	ProductDeleted Type = "product_deleted"
	StaffCreated   Type = "staff_created"
	StaffUpdated   Type = "staff_updated"
	StaffDeleted   Type = "staff_deleted"
	RoleCreated    Type = "role_created"
	RoleUpdated    Type = "role_updated"
	RoleDeleted    Type = "role_deleted"
)

// Event is one change notification.
type Event struct {
	Type       Type      `json:"type"`
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Data       any       `json:"data,omitempty"`
	At         time.Time `json:"at"`
}

// New builds an event stamped with the current time.
func New(t Type, collection, id string, data any) Event {
	return Event{
		Type:       t,
		Collection: collection,
		ID:         id,
		Data:       data,
		At:         time.Now().UTC(),
	}
}

// Publisher delivers events. Implementations must not block the caller.
type Publisher interface {
	Publish(e Event)
}

// NopPublisher discards events. Used by the command line tools.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(Event) {}

// Recorder keeps published events in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends e.
func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	events := r.Events()
	out := make([]Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*Recorder)(nil)
)
