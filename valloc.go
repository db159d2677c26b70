// Package valloc hands out blocks from one process-wide fixed-size
// memory region. Init reserves the region once; Alloc, Free, Write,
// Read and Realloc operate on Handle descriptors instead of raw
// addresses, with bounds-checked bulk access. The allocation engine
// lives in the arena subpackage and can also be driven directly with a
// caller-supplied buffer.
//
// The package performs no internal locking: callers driving it from
// several goroutines must serialize access themselves.
package valloc

import (
	"errors"
	"math"

	"github.com/vallocgo/valloc/arena"
)

var (
	ErrAlreadyInitialized = errors.New("valloc: already initialized")
	ErrNotInitialized     = errors.New("valloc: not initialized")
	ErrInvalidAccess      = errors.New("valloc: access out of handle bounds")
)

var defaultArena *arena.Arena

// Init reserves capacity bytes from the runtime and builds the default
// arena over them, once per process. The backing buffer belongs to the
// package until Shutdown.
func Init(capacity int) error {
	if defaultArena != nil {
		return ErrAlreadyInitialized
	}
	if capacity < 0 {
		return arena.ErrRegionTooSmall
	}

	a, err := arena.New(make([]byte, capacity))
	if err != nil {
		return err
	}
	defaultArena = a
	return nil
}

// Shutdown destroys the default arena and drops the backing buffer,
// leaving it to the garbage collector. All outstanding handles become
// invalid. Init may be called again afterwards.
func Shutdown() error {
	if defaultArena == nil {
		return ErrNotInitialized
	}
	defaultArena.Destroy()
	defaultArena = nil
	return nil
}

// Alloc allocates size bytes from the default arena and wraps the
// address with size as the handle's capacity.
func Alloc(size int) (Handle, error) {
	if defaultArena == nil {
		return Handle{addr: handleNone}, ErrNotInitialized
	}
	if size < 0 || size > math.MaxInt32 {
		return Handle{addr: handleNone}, arena.ErrOutOfMemory
	}

	addr, err := defaultArena.Allocate(uint32(size))
	if err != nil {
		return Handle{addr: handleNone}, err
	}
	return Handle{addr: addr, capacity: uint32(size)}, nil
}

// Free releases the handle's block and resets the descriptor to the
// sentinel. A second Free through the same variable fails with
// arena.ErrDoubleFree.
func Free(h *Handle) error {
	if defaultArena == nil {
		return ErrNotInitialized
	}
	if h == nil {
		return arena.ErrInvalidPointer
	}
	if !h.Valid() {
		return arena.ErrDoubleFree
	}

	if err := defaultArena.Release(h.addr); err != nil {
		return err
	}
	h.addr = handleNone
	h.capacity = 0
	return nil
}

// Write copies data byte-for-byte into the handle's region. Writes
// larger than the handle's capacity fail with ErrInvalidAccess before
// touching the arena.
func Write(h Handle, data []byte) error {
	if defaultArena == nil {
		return ErrNotInitialized
	}
	if len(data) > int(h.capacity) {
		return ErrInvalidAccess
	}

	dst, err := defaultArena.Bytes(h.addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Read returns a view of the first length bytes of the handle's
// region. No copy is made: the view borrows the arena's memory and
// must not be kept across a Free, Realloc or Shutdown.
func Read(h Handle, length int) (BufferView, error) {
	if defaultArena == nil {
		return BufferView{}, ErrNotInitialized
	}
	if length < 0 || length > int(h.capacity) {
		return BufferView{}, ErrInvalidAccess
	}

	src, err := defaultArena.Bytes(h.addr, uint32(length))
	if err != nil {
		return BufferView{}, err
	}
	return BufferView{Data: src, Len: length}, nil
}

// Realloc resizes the handle's block to newSize bytes, updating the
// descriptor in place. The block may move; the payload prefix is
// preserved either way. On failure the handle and its block are left
// untouched.
func Realloc(h *Handle, newSize int) error {
	if defaultArena == nil {
		return ErrNotInitialized
	}
	if h == nil || !h.Valid() {
		return arena.ErrInvalidPointer
	}
	if newSize < 0 || newSize > math.MaxInt32 {
		return arena.ErrOutOfMemory
	}

	addr, err := defaultArena.Resize(h.addr, uint32(newSize))
	if err != nil {
		return err
	}
	h.addr = addr
	h.capacity = uint32(newSize)
	return nil
}
