package arena

import "errors"

// Errors reported by the engine. ErrOutOfMemory is the only one
// expected under normal load and is recoverable by releasing blocks
// and retrying; the pointer and state errors indicate caller misuse or
// corrupted bookkeeping and should be treated as fatal.
var (
	ErrRegionTooSmall = errors.New("arena: region too small for a block header")
	ErrOutOfMemory    = errors.New("arena: out of memory")
	ErrInvalidPointer = errors.New("arena: invalid pointer")
	ErrInvalidState   = errors.New("arena: invalid free list state")
	ErrDoubleFree     = errors.New("arena: double free")
)

// maxRegion caps the managed range so offsets and sizes stay in uint32
// arithmetic with headroom below the null sentinel.
const maxRegion = 1 << 31

// Arena hands out sub-ranges of one caller-supplied byte region using
// a first-fit free list over in-band block headers. Addresses are byte
// offsets of block payloads within the region.
//
// An Arena is not safe for concurrent use: callers mutating one
// instance from multiple goroutines must serialize access externally.
type Arena struct {
	data  []byte
	limit uint32
	free  freeList
	used  uint32
}

// New creates an arena over buf, laid out as one free block spanning
// the usable range. Trailing bytes that cannot form an aligned payload
// stay unmanaged. The arena only borrows buf: it never frees it, and
// the caller may reuse it after Destroy.
func New(buf []byte) (*Arena, error) {
	if len(buf) < headerSize {
		return nil, ErrRegionTooSmall
	}
	size := len(buf)
	if size > maxRegion {
		size = maxRegion
	}

	payload := (uint32(size) - headerSize) &^ (alignUnit - 1)
	a := &Arena{
		data:  buf,
		limit: headerSize + payload,
		free:  freeList{head: nullOff},
	}
	setPayloadSize(a.data, 0, payload)
	setBlockTag(a.data, 0, tagFree)
	a.free.insert(a.data, 0)
	return a, nil
}

func roundSize(size uint32) (uint32, error) {
	if size == 0 {
		return alignUnit, nil
	}
	if size > maxRegion {
		return 0, ErrOutOfMemory
	}
	return alignUp(size), nil
}

// lookup validates an address handed back by a caller and returns its
// block offset. The header tag distinguishes a released block (double
// free) from an offset that never named a block.
func (a *Arena) lookup(addr uint32) (uint32, error) {
	if addr < headerSize || addr > a.limit || addr%alignUnit != 0 {
		return 0, ErrInvalidPointer
	}
	block := addr - headerSize
	switch blockTag(a.data, block) {
	case tagUsed:
		return block, nil
	case tagFree:
		return 0, ErrDoubleFree
	default:
		return 0, ErrInvalidPointer
	}
}

// splitTail trims the block to want payload bytes and returns the tail
// to the free list, when the tail can host a header plus a minimal
// payload. Otherwise the block keeps its full payload. The block must
// already be tagged allocated so the tail cannot coalesce back into it.
func (a *Arena) splitTail(block uint32, want uint32) {
	total := payloadSize(a.data, block)
	if total < want+headerSize+minPayload {
		return
	}

	rest := block + headerSize + want
	setPayloadSize(a.data, block, want)
	setPayloadSize(a.data, rest, total-want-headerSize)
	setBlockTag(a.data, rest, tagFree)
	a.free.insert(a.data, rest)
	a.free.coalesce(a.data, a.limit, rest)
}

// Allocate returns the address of a payload of at least size bytes.
// The size is rounded up to the alignment unit; zero asks for one
// unit. Fails with ErrOutOfMemory when no free block fits: the region
// never grows, so the caller recovers by releasing other blocks.
func (a *Arena) Allocate(size uint32) (uint32, error) {
	asize, err := roundSize(size)
	if err != nil {
		return 0, err
	}

	block, ok := a.free.findFit(a.data, asize)
	if !ok {
		return 0, ErrOutOfMemory
	}
	if err := a.free.remove(a.data, block); err != nil {
		return 0, err
	}

	setBlockTag(a.data, block, tagUsed)
	setPrevFree(a.data, block, nullOff)
	setNextFree(a.data, block, nullOff)
	a.splitTail(block, asize)

	a.used += payloadSize(a.data, block)
	return payloadOf(block), nil
}

// Release returns the block at addr to the free list and merges it
// with any adjacent free blocks.
func (a *Arena) Release(addr uint32) error {
	block, err := a.lookup(addr)
	if err != nil {
		return err
	}

	a.used -= payloadSize(a.data, block)
	setBlockTag(a.data, block, tagFree)
	a.free.insert(a.data, block)
	a.free.coalesce(a.data, a.limit, block)
	return nil
}

// Resize changes the block at addr to hold at least newSize bytes.
// Shrinks happen in place, re-splitting any reclaimed tail. Grows
// happen in place when the physically following block is free and
// large enough; otherwise the block is relocated with its payload
// prefix copied, and the old address becomes invalid. On error the
// block at addr is left untouched.
func (a *Arena) Resize(addr uint32, newSize uint32) (uint32, error) {
	block, err := a.lookup(addr)
	if err != nil {
		if err == ErrDoubleFree {
			return 0, ErrInvalidPointer
		}
		return 0, err
	}
	asize, err := roundSize(newSize)
	if err != nil {
		return 0, err
	}

	cur := payloadSize(a.data, block)
	if asize <= cur {
		a.splitTail(block, asize)
		a.used -= cur - payloadSize(a.data, block)
		return addr, nil
	}

	next := nextBlock(a.data, block)
	if next < a.limit && blockTag(a.data, next) == tagFree &&
		cur+headerSize+payloadSize(a.data, next) >= asize {
		if err := a.free.remove(a.data, next); err != nil {
			return 0, err
		}
		setPayloadSize(a.data, block, cur+headerSize+payloadSize(a.data, next))
		a.splitTail(block, asize)
		a.used += payloadSize(a.data, block) - cur
		return addr, nil
	}

	newAddr, err := a.Allocate(newSize)
	if err != nil {
		return 0, err
	}
	copy(a.data[newAddr:newAddr+cur], a.data[addr:addr+cur])
	if err := a.Release(addr); err != nil {
		return 0, err
	}
	return newAddr, nil
}

// Bytes returns a window over the first length bytes of the live
// payload at addr. The window borrows the backing region: any resize
// or release touching the block invalidates it.
func (a *Arena) Bytes(addr uint32, length uint32) ([]byte, error) {
	block, err := a.lookup(addr)
	if err != nil {
		return nil, err
	}
	if length > payloadSize(a.data, block) {
		return nil, ErrInvalidPointer
	}
	return a.data[addr : addr+length : addr+length], nil
}

// Destroy drops the arena's bookkeeping. The backing buffer was only
// ever borrowed and stays with the caller. Using the arena or any
// address from it after Destroy is a caller error with undefined
// behavior.
func (a *Arena) Destroy() {
	a.data = nil
	a.limit = 0
	a.free.head = nullOff
	a.used = 0
}

// Size returns the managed range length, headers included.
func (a *Arena) Size() uint32 {
	return a.limit
}

// Cap returns the largest payload an empty arena of this size can hand
// out.
func (a *Arena) Cap() uint32 {
	return a.limit - headerSize
}

// UsedBytes returns the payload bytes currently allocated.
func (a *Arena) UsedBytes() uint32 {
	return a.used
}

// FreeBytes returns the payload bytes currently free. It walks the
// free list, so it is not O(1).
func (a *Arena) FreeBytes() uint32 {
	var total uint32
	for b := a.free.head; b != nullOff; b = nextFree(a.data, b) {
		total += payloadSize(a.data, b)
	}
	return total
}

// NumFree returns the number of free blocks.
func (a *Arena) NumFree() int {
	count := 0
	for b := a.free.head; b != nullOff; b = nextFree(a.data, b) {
		count++
	}
	return count
}
