package arena

// freeList threads a doubly-linked list through the headers of FREE
// blocks. Insertion is at the head; no address ordering is maintained.
type freeList struct {
	head uint32
}

func (l *freeList) insert(data []byte, block uint32) {
	if l.head != nullOff {
		setPrevFree(data, l.head, block)
	}
	setNextFree(data, block, l.head)
	setPrevFree(data, block, nullOff)
	l.head = block
}

func (l *freeList) remove(data []byte, block uint32) error {
	if blockTag(data, block) != tagFree {
		return ErrInvalidState
	}

	next := nextFree(data, block)
	prev := prevFree(data, block)
	if next != nullOff {
		setPrevFree(data, next, prev)
	}
	if prev != nullOff {
		setNextFree(data, prev, next)
	} else {
		l.head = next
	}

	setPrevFree(data, block, nullOff)
	setNextFree(data, block, nullOff)
	return nil
}

// findFit returns the first free block with at least size payload
// bytes, in list order.
func (l *freeList) findFit(data []byte, size uint32) (uint32, bool) {
	for b := l.head; b != nullOff; b = nextFree(data, b) {
		if payloadSize(data, b) >= size {
			return b, true
		}
	}
	return 0, false
}

// coalesce merges the FREE block at block with any physically adjacent
// FREE neighbors and returns the offset of the merged block. The right
// neighbor is absorbed first so that a free left neighbor takes over
// the whole run in one pass.
func (l *freeList) coalesce(data []byte, limit uint32, block uint32) uint32 {
	next := nextBlock(data, block)
	if next < limit && blockTag(data, next) == tagFree {
		_ = l.remove(data, next)
		setPayloadSize(data, block, payloadSize(data, block)+headerSize+payloadSize(data, next))
	}

	prev, ok := prevPhys(data, block)
	if ok && blockTag(data, prev) == tagFree {
		_ = l.remove(data, block)
		setPayloadSize(data, prev, payloadSize(data, prev)+headerSize+payloadSize(data, block))
		block = prev
	}

	return block
}

// prevPhys locates the block physically preceding block by walking the
// block chain from the region start.
func prevPhys(data []byte, block uint32) (uint32, bool) {
	if block == 0 {
		return 0, false
	}
	cur := uint32(0)
	for {
		next := nextBlock(data, cur)
		if next == block {
			return cur, true
		}
		if next > block {
			return 0, false
		}
		cur = next
	}
}

func (l *freeList) contentOfList(data []byte) []uint32 {
	var result []uint32
	for b := l.head; b != nullOff; b = nextFree(data, b) {
		result = append(result, b)
	}
	return result
}
