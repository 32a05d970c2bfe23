package regstore

import (
	"reflect"
	"sync"

	"github.com/ambrsb/shmbus/internal/regtypes"
)

type callbackReg struct {
	filter regtypes.Filter
	cb     regtypes.Callback
}

// InMemory is the ordered-list RegistryStore variant: the item set is a
// plain slice preserving insertion order, guarded by two rwlocks, one for
// items and one for callbacks, never held as writer across a callback
// invocation.
type InMemory struct {
	itemsMu sync.RWMutex
	items   []regtypes.RegItem

	callbacksMu sync.RWMutex
	callbacks   []callbackReg
}

// NewInMemory constructs an empty store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Register appends ri if no equal item exists, then evaluates every
// registered callback against the new item set. Duplicate registration is
// idempotent, never an error.
func (s *InMemory) Register(ri regtypes.RegItem) error {
	s.itemsMu.Lock()
	found := false
	for _, existing := range s.items {
		if existing.Equal(ri) {
			found = true
			break
		}
	}
	if !found {
		s.items = append(s.items, ri)
	}
	s.itemsMu.Unlock()

	s.evaluateCallbacks()
	return nil
}

// Unregister removes the first item equal to ri, if any, then evaluates
// every registered callback. Unregistering an absent item is idempotent,
// never an error.
func (s *InMemory) Unregister(ri regtypes.RegItem) error {
	s.itemsMu.Lock()
	for i, existing := range s.items {
		if existing.Equal(ri) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.itemsMu.Unlock()

	s.evaluateCallbacks()
	return nil
}

// Lookup returns a self-consistent snapshot of items whose owner matches f,
// in insertion order.
func (s *InMemory) Lookup(f regtypes.Filter) ([]regtypes.RegItem, error) {
	s.itemsMu.RLock()
	defer s.itemsMu.RUnlock()
	return s.matchLocked(f), nil
}

// matchLocked requires itemsMu to be held (read or write).
func (s *InMemory) matchLocked(f regtypes.Filter) []regtypes.RegItem {
	out := make([]regtypes.RegItem, 0, len(s.items))
	for _, it := range s.items {
		if f.Match(it.Owner()) {
			out = append(out, it)
		}
	}
	return out
}

// AddCallback registers cb under f, then immediately invokes it once with
// the current match set, synchronously, so the subscriber starts from a
// known state.
func (s *InMemory) AddCallback(f regtypes.Filter, cb regtypes.Callback) {
	s.callbacksMu.Lock()
	s.callbacks = append(s.callbacks, callbackReg{filter: f, cb: cb})
	s.callbacksMu.Unlock()

	s.itemsMu.RLock()
	match := s.matchLocked(f)
	s.itemsMu.RUnlock()
	cb(match)
}

// RemoveCallback removes the first (f, cb) pair registered. Callback
// identity is compared by code pointer (reflect.Value.Pointer), which
// distinguishes distinct functions but, as with any Go func comparison
// workaround, cannot distinguish two closures sharing the same code with
// different captured state; callers that need precise removal should keep
// their own handle and wrap cb accordingly.
func (s *InMemory) RemoveCallback(f regtypes.Filter, cb regtypes.Callback) {
	target := reflect.ValueOf(cb).Pointer()

	s.callbacksMu.Lock()
	defer s.callbacksMu.Unlock()
	for i, reg := range s.callbacks {
		if reg.filter == f && reflect.ValueOf(reg.cb).Pointer() == target {
			s.callbacks = append(s.callbacks[:i], s.callbacks[i+1:]...)
			return
		}
	}
}

// evaluateCallbacks runs every registered callback, in registration order,
// against the current item set. It takes items-read together with
// callbacks-read, never while an items-write lock is held, so a callback
// can Lookup without self-deadlock.
func (s *InMemory) evaluateCallbacks() {
	s.callbacksMu.RLock()
	defer s.callbacksMu.RUnlock()

	s.itemsMu.RLock()
	defer s.itemsMu.RUnlock()

	for _, reg := range s.callbacks {
		reg.cb(s.matchLocked(reg.filter))
	}
}

// Snapshot returns every item currently registered, in insertion order.
// Not part of the Store capability set; exposed for tests that need to
// assert on the full state directly.
func (s *InMemory) Snapshot() []regtypes.RegItem {
	s.itemsMu.RLock()
	defer s.itemsMu.RUnlock()
	out := make([]regtypes.RegItem, len(s.items))
	copy(out, s.items)
	return out
}
