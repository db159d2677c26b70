package arena

import (
	"encoding/binary"
	"math"
)

const (
	// alignUnit is the alignment unit: every payload size and every
	// payload start offset is a multiple of it.
	alignUnit = 8

	// headerSize is the in-band metadata prefix of every block.
	headerSize = 16

	// minPayload is the smallest payload worth splitting off as a
	// separate free block.
	minPayload = alignUnit
)

const (
	nullOff uint32 = math.MaxUint32

	// Block state tags. The magic values double as the validity probe
	// for addresses handed back by callers: anything else under a
	// header slot means the offset never named a block.
	tagFree uint32 = 0xf7eeb10c
	tagUsed uint32 = 0xa110ca7e
)

// Header field offsets relative to the block start.
const (
	fieldSize     uint32 = 0
	fieldTag      uint32 = 4
	fieldPrevFree uint32 = 8
	fieldNextFree uint32 = 12
)

func alignUp(n uint32) uint32 {
	return (n + alignUnit - 1) &^ (alignUnit - 1)
}

func getField(data []byte, block uint32, field uint32) uint32 {
	return binary.LittleEndian.Uint32(data[block+field:])
}

func setField(data []byte, block uint32, field uint32, val uint32) {
	binary.LittleEndian.PutUint32(data[block+field:], val)
}

func payloadSize(data []byte, block uint32) uint32 {
	return getField(data, block, fieldSize)
}

func setPayloadSize(data []byte, block uint32, size uint32) {
	setField(data, block, fieldSize, size)
}

func blockTag(data []byte, block uint32) uint32 {
	return getField(data, block, fieldTag)
}

func setBlockTag(data []byte, block uint32, tag uint32) {
	setField(data, block, fieldTag, tag)
}

func prevFree(data []byte, block uint32) uint32 {
	return getField(data, block, fieldPrevFree)
}

func setPrevFree(data []byte, block uint32, off uint32) {
	setField(data, block, fieldPrevFree, off)
}

func nextFree(data []byte, block uint32) uint32 {
	return getField(data, block, fieldNextFree)
}

func setNextFree(data []byte, block uint32, off uint32) {
	setField(data, block, fieldNextFree, off)
}

// payloadOf converts a block offset to its payload offset.
func payloadOf(block uint32) uint32 {
	return block + headerSize
}

// nextBlock returns the physically following block. Headers partition
// the managed range, so this lands on a header or on the range limit.
func nextBlock(data []byte, block uint32) uint32 {
	return block + headerSize + payloadSize(data, block)
}
