package valloc

import "math"

// handleNone marks a freed handle. Offset 0 is a valid address, so the
// sentinel sits past any reachable offset.
const handleNone uint32 = math.MaxUint32

// Handle is a caller-held descriptor for one allocation made through
// the default arena: the block's address plus the capacity requested
// at Alloc time. Handles are plain values; Free writes the sentinel
// back through its pointer argument so a second Free of the same
// variable is caught as a double free instead of corrupting the arena.
type Handle struct {
	addr     uint32
	capacity uint32
}

// Addr ...
func (h Handle) Addr() uint32 {
	return h.addr
}

// Cap ...
func (h Handle) Cap() uint32 {
	return h.capacity
}

// Valid reports whether the handle still names a live allocation.
func (h Handle) Valid() bool {
	return h.addr != handleNone
}

// BufferView is a borrowed window into a handle's region. It stays
// valid only until the next Free, Realloc or Shutdown touching that
// region; it must never outlive the handle it was read from.
type BufferView struct {
	Data []byte
	Len  int
}
