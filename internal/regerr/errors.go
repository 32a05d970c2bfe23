// Package regerr defines the typed error values shared across the message
// bus. Each value corresponds to one row of the error handling design: queue
// backpressure is reported through plain return values everywhere else in
// this module, but the sentinel here lets callers use errors.Is uniformly.
package regerr

import "errors"

var (
	// ErrQueueFull is returned by Ring.Enqueue when the ring has no free slot.
	ErrQueueFull = errors.New("shmbus: ring is full")

	// ErrQueueEmpty is returned by Ring.Dequeue when no slot is ready.
	ErrQueueEmpty = errors.New("shmbus: ring is empty")

	// ErrChannelNotFound is returned by Extractor construction when the
	// registry has no item matching the requested (owner, channel) pair.
	ErrChannelNotFound = errors.New("shmbus: channel not found")

	// ErrRegistrationFailed is returned by client stubs when a Register RPC
	// does not complete with an OK status.
	ErrRegistrationFailed = errors.New("shmbus: registration failed")

	// ErrUnregistrationFailed is returned by client stubs when an
	// Unregister RPC does not complete with an OK status.
	ErrUnregistrationFailed = errors.New("shmbus: unregistration failed")

	// ErrLookupFailed is returned by client stubs when a Lookup RPC does
	// not complete with an OK status.
	ErrLookupFailed = errors.New("shmbus: lookup failed")

	// ErrStorageFault is returned by the persistent RegistryStore when the
	// backing database cannot open, prepare, or step a statement.
	ErrStorageFault = errors.New("shmbus: storage fault")

	// ErrBadArgument is returned at in-process and RPC boundaries for
	// rejected input: empty register lists, oversized ring capacity, empty
	// location names.
	ErrBadArgument = errors.New("shmbus: bad argument")

	// ErrExecFailed is returned by the supervisor when exec of the child
	// image fails.
	ErrExecFailed = errors.New("shmbus: exec failed")

	// ErrForkFailed is returned by the supervisor when starting the child
	// process fails before exec.
	ErrForkFailed = errors.New("shmbus: fork failed")

	// ErrNotImplemented marks the reserved, currently non-functional
	// surface: AddCallback/RemoveCallback over RPC and the extractor
	// client's RegisterCallback placeholder.
	ErrNotImplemented = errors.New("shmbus: not implemented")
)
