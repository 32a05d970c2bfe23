//go:build unix

// Package shm owns the one resource the rest of this module builds on: a
// named, process-surviving shared-memory segment. A Segment only ever owns
// the local mapping; destruction is a separate, explicit operation, never
// implied by Close.
package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// maxNameBytes bounds a ring name before the SEG4xRING_ prefix is applied.
// Names must be printable ASCII.
const maxNameBytes = 63

// dir is where segment-backing files live. /dev/shm is a tmpfs on every
// Linux host and is the idiomatic place to park POSIX-style shared memory
// without a CGO dependency on shm_open(3).
var dir = "/dev/shm"

// SegmentName derives the shared-memory segment name for a ring name:
// SEG4xRING_<ringName>, capped at 64 bytes.
func SegmentName(ringName string) (string, error) {
	if ringName == "" || len(ringName) > maxNameBytes {
		return "", fmt.Errorf("shm: ring name must be 1..%d bytes, got %d", maxNameBytes, len(ringName))
	}
	for _, b := range []byte(ringName) {
		if b < 0x20 || b > 0x7e {
			return "", fmt.Errorf("shm: ring name must be printable ASCII")
		}
	}
	name := "SEG4xRING_" + ringName
	if len(name) > 64 {
		return "", fmt.Errorf("shm: segment name %q exceeds 64 bytes", name)
	}
	return name, nil
}

// Segment is a process-local mapping of a named shared-memory region.
type Segment struct {
	name string
	path string
	data []byte
}

func segPath(name string) string {
	// Segment names are printable ASCII (SegmentName only ever emits
	// SEG4xRING_<ringName>, and ringName is restricted to printable bytes).
	// Printable ASCII still includes '/', so every '/' is mapped to '_' to
	// keep the backing file directly inside dir.
	return filepath.Join(dir, strings.ReplaceAll(name, "/", "_"))
}

// Create creates segment name with the given size (in bytes) and maps it
// read/write. If a backing file already exists under the same name (a
// previous creator that did not Unlink), it is reused and resized, so that
// all processes attaching by the same name see the same region.
func Create(name string, size int) (*Segment, error) {
	path := segPath(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: create %q: %w", name, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("shm: truncate %q to %d: %w", name, size, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %q: %w", name, err)
	}

	return &Segment{name: name, path: path, data: data}, nil
}

// Open attaches to an existing segment by name without creating it. A
// positive size maps that many bytes; a size of 0 or less maps the whole
// backing file, its size taken from a stat of the file.
func Open(name string, size int) (*Segment, error) {
	path := segPath(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %q: %w", name, err)
	}
	defer f.Close()

	if size <= 0 {
		st, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("shm: stat %q: %w", name, err)
		}
		size = int(st.Size())
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %q: %w", name, err)
	}

	return &Segment{name: name, path: path, data: data}, nil
}

// Exists reports whether a segment by this name currently has a backing
// file, without mapping it.
func Exists(name string) bool {
	_, err := os.Stat(segPath(name))
	return err == nil
}

// Bytes returns the mapped region. Callers only ever read/write through
// atomics into positions inside this slice; there is no higher-level
// indirection once the mapping is established.
func (s *Segment) Bytes() []byte { return s.data }

// Name returns the segment's name.
func (s *Segment) Name() string { return s.name }

// Close detaches this process's mapping. It never destroys the segment:
// other attachments, and the backing file, are untouched.
func (s *Segment) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	return err
}

// Unlink destroys the segment's backing file. This is the explicit,
// separate destroy operation the data model calls for; nothing in this
// module's normal operation calls it on a caller's behalf.
func (s *Segment) Unlink() error {
	return os.Remove(s.path)
}
