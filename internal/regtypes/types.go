// Package regtypes defines the data model shared by the RegistryStore, the
// RPC service, and the client stubs: BufferLocation, RegItem, and Filter.
package regtypes

import (
	"fmt"
	"strings"

	"github.com/ambrsb/shmbus/internal/regerr"
)

// Region distinguishes a buffer location reachable on the local host from
// one reachable only across hosts. Far locations are reserved by the type
// model but unimplemented; nothing constructs them today.
type Region int

const (
	Near Region = iota
	Far
)

func (r Region) String() string {
	if r == Far {
		return "far"
	}
	return "near"
}

// BufferLocation identifies a ring. Two locations compare equal iff their
// Name fields match; Addr is only meaningful for Far locations.
type BufferLocation struct {
	Name   string
	Region Region
	Addr   *string
}

// NewNearLocation builds a Near BufferLocation, the only kind this module
// constructs today.
func NewNearLocation(name string) BufferLocation {
	return BufferLocation{Name: name, Region: Near}
}

// Equal compares two locations by name only.
func (l BufferLocation) Equal(other BufferLocation) bool {
	return l.Name == other.Name
}

// RegItem is an (owner, location) entry inside the registry. It is
// immutable once constructed: every field is set exactly once, by NewRegItem.
type RegItem struct {
	owner    string
	location BufferLocation
}

// NewRegItem constructs an immutable RegItem. owner must be non-empty and
// location.Name must be at least 2 bytes.
func NewRegItem(owner string, location BufferLocation) (RegItem, error) {
	if owner == "" {
		return RegItem{}, fmt.Errorf("regtypes: owner must be non-empty: %w", regerr.ErrBadArgument)
	}
	if len(location.Name) < 2 {
		return RegItem{}, fmt.Errorf("regtypes: location name must be at least 2 bytes: %w", regerr.ErrBadArgument)
	}
	return RegItem{owner: owner, location: location}, nil
}

func (ri RegItem) Owner() string            { return ri.owner }
func (ri RegItem) Location() BufferLocation { return ri.location }

// Equal compares by (owner, location.Name).
func (ri RegItem) Equal(other RegItem) bool {
	return ri.owner == other.owner && ri.location.Name == other.location.Name
}

// Filter is a substring pattern over RegItem.Owner. Filter equality is
// textual.
type Filter string

// Match reports whether f is a substring of owner.
func (f Filter) Match(owner string) bool {
	return strings.Contains(owner, string(f))
}

// Callback is invoked by RegistryStore with the current match set for a
// registered Filter. Callbacks must not panic; any fault they raise is
// undefined behavior from the store's perspective.
type Callback func([]RegItem)
