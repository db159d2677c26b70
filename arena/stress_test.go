package arena

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/require"
)

// checkPartition verifies the structural invariants: headers partition
// the managed range, the free list holds exactly the FREE blocks, and
// no two adjacent blocks are both free.
func checkPartition(t *testing.T, a *Arena) {
	t.Helper()

	listed := map[uint32]bool{}
	for _, b := range a.free.contentOfList(a.data) {
		require.False(t, listed[b], "block %d listed twice", b)
		listed[b] = true
	}

	prevWasFree := false
	b := uint32(0)
	for b < a.limit {
		tag := blockTag(a.data, b)
		require.Contains(t, []uint32{tagFree, tagUsed}, tag, "block %d", b)
		require.Equal(t, uint32(0), payloadSize(a.data, b)%alignUnit, "block %d", b)

		isFree := tag == tagFree
		require.Equal(t, isFree, listed[b], "block %d list membership", b)
		if isFree {
			require.False(t, prevWasFree, "un-coalesced free blocks at %d", b)
			delete(listed, b)
		}
		prevWasFree = isFree
		b = nextBlock(a.data, b)
	}
	require.Equal(t, a.limit, b)
	require.Empty(t, listed)
}

func TestArenaStress(t *testing.T) {
	type liveBlock struct {
		addr uint32
		data []byte
	}

	a, err := New(make([]byte, 1<<16))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	var live []liveBlock

	for i := 0; i < 3000; i++ {
		op := rng.Intn(10)
		if len(live) == 0 {
			op = 0
		}

		switch {
		case op < 5:
			payload := []byte(faker.Word())
			addr, err := a.Allocate(uint32(len(payload)))
			if err == ErrOutOfMemory {
				continue
			}
			require.NoError(t, err)

			dst, err := a.Bytes(addr, uint32(len(payload)))
			require.NoError(t, err)
			copy(dst, payload)
			live = append(live, liveBlock{addr: addr, data: payload})

		case op < 8:
			k := rng.Intn(len(live))
			blk := live[k]

			got, err := a.Bytes(blk.addr, uint32(len(blk.data)))
			require.NoError(t, err)
			require.True(t, bytes.Equal(blk.data, got), "block %d corrupted", blk.addr)

			require.NoError(t, a.Release(blk.addr))
			live = append(live[:k], live[k+1:]...)

		default:
			k := rng.Intn(len(live))
			blk := &live[k]

			newSize := uint32(1 + rng.Intn(64))
			addr, err := a.Resize(blk.addr, newSize)
			if err == ErrOutOfMemory {
				continue
			}
			require.NoError(t, err)

			blk.addr = addr
			if int(newSize) < len(blk.data) {
				blk.data = blk.data[:newSize]
			}
			got, err := a.Bytes(addr, uint32(len(blk.data)))
			require.NoError(t, err)
			require.True(t, bytes.Equal(blk.data, got), "block %d lost its prefix", addr)
		}

		if i%100 == 0 {
			checkPartition(t, a)
		}
	}

	checkPartition(t, a)

	for _, blk := range live {
		got, err := a.Bytes(blk.addr, uint32(len(blk.data)))
		require.NoError(t, err)
		require.True(t, bytes.Equal(blk.data, got))
		require.NoError(t, a.Release(blk.addr))
	}

	// fully released: one free block spanning the whole region
	require.Equal(t, uint32(0), a.UsedBytes())
	require.Equal(t, []uint32{0}, a.free.contentOfList(a.data))
	require.Equal(t, a.Cap(), a.FreeBytes())
	require.Equal(t, a.Cap(), payloadSize(a.data, 0))
}
