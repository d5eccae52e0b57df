package core

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// entityIDPattern is the required <domain>.<object_id> shape. Both parts
// allow only lowercase letters, digits and underscore.
var entityIDPattern = regexp.MustCompile(`^[a-z0-9_]+\.[a-z0-9_]+$`)

// ValidEntityID normalises an entity id to lowercase and validates its
// shape, returning the normalised id or ErrInvalidEntityID.
func ValidEntityID(entityID string) (string, error) {
	normalised := strings.ToLower(entityID)
	if !entityIDPattern.MatchString(normalised) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityID, entityID)
	}
	return normalised, nil
}

// SplitEntityID returns the domain and object parts of a well-formed
// entity id. The second part is empty if the id has no dot.
func SplitEntityID(entityID string) (domain, object string) {
	domain, object, _ = strings.Cut(entityID, ".")
	return domain, object
}

// State is an immutable snapshot of one entity. Any change produces a
// new State; stored snapshots are never mutated in place.
type State struct {
	EntityID string `json:"entity_id"`

	// Value is the entity's primary state (e.g. "on", "21.5").
	Value string `json:"state"`

	// Attributes carry secondary readings (brightness, unit, ...).
	Attributes map[string]any `json:"attributes"`

	// LastChanged advances only when Value differs from the prior snapshot.
	LastChanged time.Time `json:"last_changed"`

	// LastUpdated advances whenever Value or Attributes change.
	LastUpdated time.Time `json:"last_updated"`

	Context Context `json:"context"`
}

// Domain returns the entity id's domain part.
func (s *State) Domain() string {
	domain, _ := SplitEntityID(s.EntityID)
	return domain
}

// copy returns an independent snapshot so callers can never mutate the
// stored one through the returned pointer.
func (s *State) copy() *State {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Attributes = deepCopyMap(s.Attributes)
	return &dup
}

// deepCopyMap recursively copies a string-keyed map, descending into
// nested maps and lists so no container is shared with the original.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	dup := make(map[string]any, len(m))
	for k, v := range m {
		dup[k] = deepCopyValue(v)
	}
	return dup
}

// deepCopyList copies a list, recursing into nested containers.
func deepCopyList(list []any) []any {
	dup := make([]any, len(list))
	for i, v := range list {
		dup[i] = deepCopyValue(v)
	}
	return dup
}

func deepCopyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return deepCopyMap(typed)
	case []any:
		return deepCopyList(typed)
	default:
		return v
	}
}

// StateStore maps entity ids to their most recent State snapshot. Every
// mutation publishes an EventStateChanged carrying the old and new
// snapshots (old is nil for a first-ever set, new is nil on removal).
//
// All methods are safe for concurrent use.
type StateStore struct {
	bus *EventBus

	mu     sync.RWMutex
	states map[string]*State
}

// NewStateStore creates an empty store publishing on the given bus.
func NewStateStore(bus *EventBus) *StateStore {
	return &StateStore{
		bus:    bus,
		states: make(map[string]*State),
	}
}

// Get returns the current snapshot for entityID, or nil if absent.
// The id is normalised to lowercase before lookup.
func (s *StateStore) Get(entityID string) *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[strings.ToLower(entityID)].copy()
}

// Set records a new snapshot for entityID and publishes state_changed.
//
// When attributes is nil the prior snapshot's attributes are carried
// over. Setting a value and attributes identical to the stored snapshot
// is a no-op: no new State is created and no event fires. LastChanged is
// preserved from the prior snapshot when only attributes differ.
//
// Returns the stored snapshot, or ErrInvalidEntityID for a malformed id.
func (s *StateStore) Set(entityID, value string, attributes map[string]any, cc Context) (*State, error) {
	id, err := ValidEntityID(entityID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	old := s.states[id]

	if attributes == nil && old != nil {
		attributes = old.Attributes
	}
	if old != nil && old.Value == value && attrsEqual(old.Attributes, attributes) {
		s.mu.Unlock()
		return old.copy(), nil
	}

	now := time.Now().UTC()
	lastChanged := now
	if old != nil && old.Value == value {
		lastChanged = old.LastChanged
	}

	next := &State{
		EntityID:    id,
		Value:       value,
		Attributes:  deepCopyMap(attributes),
		LastChanged: lastChanged,
		LastUpdated: now,
		Context:     cc.orNew(),
	}
	s.states[id] = next

	// Published under the lock so the event queue sees mutations in
	// commit order. Publish only enqueues, it never runs listeners.
	s.bus.Publish(EventStateChanged, map[string]any{
		AttrEntityID: id,
		AttrOldState: old.copy(),
		AttrNewState: next.copy(),
	}, OriginLocal, next.Context)
	s.mu.Unlock()

	return next.copy(), nil
}

// Remove deletes the stored snapshot for entityID, publishing a
// state_changed event with a nil new state. Reports whether a snapshot
// was actually removed.
func (s *StateStore) Remove(entityID string, cc Context) bool {
	id := strings.ToLower(entityID)

	s.mu.Lock()
	old, ok := s.states[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.states, id)

	s.bus.Publish(EventStateChanged, map[string]any{
		AttrEntityID: id,
		AttrOldState: old.copy(),
		AttrNewState: (*State)(nil),
	}, OriginLocal, cc)
	s.mu.Unlock()
	return true
}

// EntityIDs returns the stored entity ids, sorted, optionally filtered
// by domain. The result is a point-in-time snapshot; concurrent
// mutations are not reflected.
func (s *StateStore) EntityIDs(domainFilter string) []string {
	domainFilter = strings.ToLower(domainFilter)

	s.mu.RLock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		if domainFilter != "" {
			if domain, _ := SplitEntityID(id); domain != domainFilter {
				continue
			}
		}
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// All returns snapshots of every stored state, sorted by entity id.
func (s *StateStore) All() []*State {
	s.mu.RLock()
	states := make([]*State, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st.copy())
	}
	s.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].EntityID < states[j].EntityID })
	return states
}

// attrsEqual compares attribute maps, treating nil and empty as equal.
func attrsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
