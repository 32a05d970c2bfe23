// Package regstore implements the RegistryStore: a concurrent multi-set of
// RegItem plus a list of (Filter, Callback) subscriptions, in two variants
// (in-memory, persistent) behind one capability interface so the RPC
// service can hold the abstraction rather than a concrete store.
package regstore

import "github.com/ambrsb/shmbus/internal/regtypes"

// Store is the capability set every RegistryStore variant implements.
type Store interface {
	Register(ri regtypes.RegItem) error
	Unregister(ri regtypes.RegItem) error
	Lookup(f regtypes.Filter) ([]regtypes.RegItem, error)
	AddCallback(f regtypes.Filter, cb regtypes.Callback)
	RemoveCallback(f regtypes.Filter, cb regtypes.Callback)
}
