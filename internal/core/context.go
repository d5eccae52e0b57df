package core

import "github.com/google/uuid"

// Context is the causal token attached to every event, state change and
// service call. It records which action triggered the current one so
// collaborators (loop detectors, audit trails) can walk the chain.
//
// Contexts are immutable value types: they carry only ids, never a
// pointer to the parent, so chains form a tree without reference cycles.
type Context struct {
	// ID uniquely identifies this link of the chain.
	ID string `json:"id"`

	// ParentID is the id of the triggering Context, empty for a root.
	ParentID string `json:"parent_id,omitempty"`
}

// NewContext mints a fresh root Context.
func NewContext() Context {
	return Context{ID: uuid.NewString()}
}

// Child mints a Context chained from c. Handlers that cause follow-up
// actions while reacting to an event should derive from the event's
// Context rather than minting a new root.
func (c Context) Child() Context {
	return Context{ID: uuid.NewString(), ParentID: c.ID}
}

// IsZero reports whether c is the absent Context.
func (c Context) IsZero() bool {
	return c.ID == ""
}

// orNew returns c, or a fresh root Context if c is absent.
func (c Context) orNew() Context {
	if c.IsZero() {
		return NewContext()
	}
	return c
}
