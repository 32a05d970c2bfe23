// Package ring implements the shared-memory MPMC ring: a named, bounded,
// lock-free FIFO of fixed-size elem.Elem records backed by an internal/shm
// segment.
//
// The algorithm is Dmitry Vyukov's bounded MPMC queue: each slot carries a
// sequence number that a producer/consumer CAS's forward. Pointers can't
// cross address spaces (every process maps the segment at a possibly
// different base), so the "node" is a fixed byte offset inside the mapped
// region and the payload is the bit-exact elem.Elem wire form rather than
// a Go value.
package ring

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/ambrsb/shmbus/internal/elem"
	"github.com/ambrsb/shmbus/internal/regerr"
	"github.com/ambrsb/shmbus/internal/shm"
)

// MaxCapacity is the hard ceiling on ring slots.
const MaxCapacity = 8192

// OneMiB is the fixed headroom the segment sizing formula adds on top of
// the slot array.
const OneMiB = 1 << 20

const (
	magic      uint64 = 0x52494e47424d5058 // "RINGBMPX"
	headerSize        = 64
	// slotStride is the per-slot footprint: an 8-byte sequence field
	// followed by the fixed elem wire form, which keeps every sequence
	// field 8-byte aligned (required for atomic access into mmap'd bytes).
	slotStride = 8 + elem.Size
)

// Ring is a handle to one process's attachment to a named shared-memory
// queue. It owns only the local mapping: Close detaches this process, it
// never destroys the segment.
type Ring struct {
	seg      *shm.Segment
	name     string
	capacity uint64
}

// Size computes the segment size for a ring of n slots:
// capacity x element size x 8, plus a MiB of headroom.
func Size(n uint64, elemSize int) int64 {
	return int64(n)*int64(elemSize)*8 + OneMiB
}

// Init creates ring name with n slots of elemsz-byte records and
// place-constructs the queue header and slot array inside a freshly sized
// shared-memory segment. It fails (returns an error, never panics) if n
// exceeds MaxCapacity or elemsz does not match elem.Size, or if the segment
// cannot be created.
func Init(name string, n uint64, elemsz int) (*Ring, error) {
	if n == 0 || n > MaxCapacity {
		return nil, fmt.Errorf("ring: capacity %d exceeds %d: %w", n, MaxCapacity, regerr.ErrBadArgument)
	}
	if elemsz != elem.Size {
		return nil, fmt.Errorf("ring: element size %d != %d: %w", elemsz, elem.Size, regerr.ErrBadArgument)
	}

	segName, err := shm.SegmentName(name)
	if err != nil {
		return nil, fmt.Errorf("ring: %w: %v", regerr.ErrBadArgument, err)
	}

	size := Size(n, elemsz)
	seg, err := shm.Create(segName, int(size))
	if err != nil {
		return nil, fmt.Errorf("ring: create segment: %w", err)
	}

	r := &Ring{seg: seg, name: name, capacity: n}

	if binary.NativeEndian.Uint64(seg.Bytes()[0:8]) == magic {
		// A previous creator already initialized this segment and never
		// unlinked it; attach to the existing queue rather than clobbering
		// it, matching "at most one segment per name lives at a time".
		existingCap := binary.NativeEndian.Uint64(seg.Bytes()[8:16])
		existingElemSz := binary.NativeEndian.Uint64(seg.Bytes()[16:24])
		if existingCap != n || existingElemSz != uint64(elemsz) {
			seg.Close()
			return nil, fmt.Errorf("ring: existing segment %q has capacity/elemsz %d/%d, want %d/%d",
				name, existingCap, existingElemSz, n, elemsz)
		}
		r.capacity = existingCap
		return r, nil
	}

	r.writeHeader(n, uint64(elemsz))
	for i := uint64(0); i < n; i++ {
		atomic.StoreUint64(r.slotSeqPtr(i), i)
	}
	// Publish the header last: readers gate on the magic value, so every
	// slot's initial sequence must be visible before it.
	atomic.StoreUint64(r.u64At(0), magic)

	return r, nil
}

// Lookup open-only attaches to an existing ring by name. It never
// initializes a queue; it fails if no segment by that name exists.
func Lookup(name string) (*Ring, error) {
	segName, err := shm.SegmentName(name)
	if err != nil {
		return nil, fmt.Errorf("ring: %w: %v", regerr.ErrBadArgument, err)
	}
	if !shm.Exists(segName) {
		return nil, fmt.Errorf("ring: no segment named %q", name)
	}

	seg, err := shm.Open(segName, 0)
	if err != nil {
		return nil, fmt.Errorf("ring: open segment: %w", err)
	}

	r := &Ring{seg: seg, name: name}
	if atomic.LoadUint64(r.u64At(0)) != magic {
		seg.Close()
		return nil, fmt.Errorf("ring: segment %q is not an initialized ring", name)
	}
	r.capacity = atomic.LoadUint64(r.u64At(8))
	elemsz := atomic.LoadUint64(r.u64At(16))
	if elemsz != uint64(elem.Size) {
		seg.Close()
		return nil, fmt.Errorf("ring: segment %q has element size %d, want %d", name, elemsz, elem.Size)
	}
	return r, nil
}

func (r *Ring) writeHeader(n, elemsz uint64) {
	atomic.StoreUint64(r.u64At(8), n)
	atomic.StoreUint64(r.u64At(16), elemsz)
	atomic.StoreUint64(r.u64At(24), 0) // write cursor
	atomic.StoreUint64(r.u64At(32), 0) // read cursor
}

func (r *Ring) u64At(offset int) *uint64 {
	return (*uint64)(unsafe.Pointer(&r.seg.Bytes()[offset]))
}

func (r *Ring) writeCursorPtr() *uint64 { return r.u64At(24) }
func (r *Ring) readCursorPtr() *uint64  { return r.u64At(32) }

func (r *Ring) slotOffset(i uint64) int {
	return headerSize + int(i)*slotStride
}

func (r *Ring) slotSeqPtr(i uint64) *uint64 {
	return (*uint64)(unsafe.Pointer(&r.seg.Bytes()[r.slotOffset(i)]))
}

func (r *Ring) slotData(i uint64) []byte {
	off := r.slotOffset(i) + 8
	return r.seg.Bytes()[off : off+elem.Size]
}

// maxSpins bounds how long Enqueue/Dequeue spin against a contended CAS
// before concluding the ring is genuinely full/empty rather than merely
// racing another producer/consumer. Both operations remain non-blocking:
// this is backoff, not a wait.
const maxSpins = 1 << 16

// Enqueue publishes e into the ring. It never blocks: it returns
// regerr.ErrQueueFull the instant every slot is occupied by an
// unconsumed record.
func (r *Ring) Enqueue(e elem.Elem) error {
	pos := atomic.LoadUint64(r.writeCursorPtr())
	for spins := 0; spins < maxSpins; spins++ {
		idx := pos % r.capacity
		seqPtr := r.slotSeqPtr(idx)
		seq := atomic.LoadUint64(seqPtr)

		switch diff := int64(seq) - int64(pos); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(r.writeCursorPtr(), pos, pos+1) {
				e.Marshal(r.slotData(idx))
				atomic.StoreUint64(seqPtr, pos+1)
				return nil
			}
			pos = atomic.LoadUint64(r.writeCursorPtr())
		case diff < 0:
			return regerr.ErrQueueFull
		default:
			pos = atomic.LoadUint64(r.writeCursorPtr())
		}
		runtime.Gosched()
	}
	return regerr.ErrQueueFull
}

// Dequeue pops the next ready record. It never blocks: it returns
// regerr.ErrQueueEmpty the instant no slot is ready.
func (r *Ring) Dequeue() (elem.Elem, error) {
	pos := atomic.LoadUint64(r.readCursorPtr())
	for spins := 0; spins < maxSpins; spins++ {
		idx := pos % r.capacity
		seqPtr := r.slotSeqPtr(idx)
		seq := atomic.LoadUint64(seqPtr)

		switch diff := int64(seq) - int64(pos+1); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(r.readCursorPtr(), pos, pos+1) {
				e := elem.Unmarshal(r.slotData(idx))
				atomic.StoreUint64(seqPtr, pos+r.capacity)
				return e, nil
			}
			pos = atomic.LoadUint64(r.readCursorPtr())
		case diff < 0:
			return elem.Elem{}, regerr.ErrQueueEmpty
		default:
			pos = atomic.LoadUint64(r.readCursorPtr())
		}
		runtime.Gosched()
	}
	return elem.Elem{}, regerr.ErrQueueEmpty
}

// Close detaches this process's mapping. Other attachments are unaffected.
func (r *Ring) Close() error {
	return r.seg.Close()
}

// Destroy unlinks the segment's backing storage. Nothing in normal
// operation calls this; it exists for tests and explicit teardown tooling.
func (r *Ring) Destroy() error {
	return r.seg.Unlink()
}

// Name returns the ring's name (without the SEG4xRING_ segment prefix).
func (r *Ring) Name() string { return r.name }

// Capacity returns the number of usable slots.
func (r *Ring) Capacity() uint64 { return r.capacity }

// Stats is a best-effort, non-authoritative snapshot of queue occupancy,
// useful for diagnostics; it is not part of the enqueue/dequeue contract
// and is never used to gate either.
type Stats struct {
	Capacity uint64
	Len      uint64
}

// Stats reads the current write/read cursors. Because the cursors can move
// concurrently, the result is a best-effort snapshot, not a consistent
// point-in-time count.
func (r *Ring) Stats() Stats {
	w := atomic.LoadUint64(r.writeCursorPtr())
	rd := atomic.LoadUint64(r.readCursorPtr())
	if w < rd {
		return Stats{Capacity: r.capacity, Len: 0}
	}
	return Stats{Capacity: r.capacity, Len: w - rd}
}
