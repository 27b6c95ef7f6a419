package bytealloc_test

import (
	"bytes"
	"cmp"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heapkit/bytealloc"
	"github.com/vkngwrapper/heapkit/memutils"
	"golang.org/x/exp/slices"
)

type liveAllocation struct {
	addr    uintptr
	layout  bytealloc.Layout
	charged int
	pattern byte
}

func ownerData(t *testing.T, allocator *bytealloc.Allocator, addr uintptr) uintptr {
	t.Helper()

	for _, info := range blocks(t, allocator) {
		if !info.Free && addr >= info.Data && addr <= info.Data+uintptr(info.Size) {
			return info.Data
		}
	}

	require.FailNow(t, "no used block owns the allocation", "address %#x", addr)
	return 0
}

func requireDisjoint(t *testing.T, live []liveAllocation) {
	t.Helper()

	sorted := slices.Clone(live)
	slices.SortFunc(sorted, func(left, right liveAllocation) int {
		return cmp.Compare(left.addr, right.addr)
	})

	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		require.Truef(t, prev.addr+uintptr(prev.layout.Size) <= sorted[i].addr,
			"allocation at %#x overlaps allocation at %#x", prev.addr, sorted[i].addr)
	}
}

func runRandomSequence(t *testing.T, options bytealloc.CreateOptions, seed int64) {
	allocator := readyAllocator(t, options, make([]byte, 64*1024))
	random := rand.New(rand.NewSource(seed))

	var live []liveAllocation
	expectedUsed := 0

	for step := 0; step < 2000; step++ {
		if len(live) == 0 || random.Intn(100) < 55 {
			layout := bytealloc.Layout{
				Size:  random.Intn(513),
				Align: uint(1) << random.Intn(7),
			}

			usedBefore := allocator.UsedBytes()
			addr, err := allocator.Alloc(layout)
			if err != nil {
				require.True(t, errors.Is(err, memutils.ErrNoMemory), "step %d: %+v", step, err)
				require.Equal(t, usedBefore, allocator.UsedBytes())
				continue
			}

			require.Zero(t, addr%uintptr(layout.Align), "step %d", step)

			charged := layout.Size + int(addr-ownerData(t, allocator, addr))
			expectedUsed += charged

			pattern := byte(step)
			view, err := allocator.Bytes(addr, layout.Size)
			require.NoError(t, err)
			for i := range view {
				view[i] = pattern
			}

			live = append(live, liveAllocation{addr: addr, layout: layout, charged: charged, pattern: pattern})
		} else {
			index := random.Intn(len(live))
			victim := live[index]

			view, err := allocator.Bytes(victim.addr, victim.layout.Size)
			require.NoError(t, err)
			require.Equal(t, bytes.Repeat([]byte{victim.pattern}, victim.layout.Size), view, "step %d: allocation at %#x was overwritten", step, victim.addr)

			require.NoError(t, allocator.Dealloc(victim.addr, victim.layout))
			expectedUsed -= victim.charged

			live[index] = live[len(live)-1]
			live = live[:len(live)-1]
		}

		require.Equal(t, expectedUsed, allocator.UsedBytes(), "step %d", step)
		require.Equal(t, allocator.TotalBytes(), allocator.UsedBytes()+allocator.AvailableBytes())
		require.NoError(t, allocator.Validate(), "step %d", step)
		requireDisjoint(t, live)
	}

	for _, allocation := range live {
		require.NoError(t, allocator.Dealloc(allocation.addr, allocation.layout))
	}

	require.Equal(t, 0, allocator.UsedBytes())
	require.Equal(t, 1, allocator.BlockCount())
	require.Equal(t, allocator.TotalBytes()-allocator.HeaderSize(), allocator.LargestFreeBlock())
	require.NoError(t, allocator.Validate())
}

func TestRandomSequences(t *testing.T) {
	testCases := map[string]bytealloc.CreateOptions{
		"BestFitDouble": {},
		"FirstFitDouble": {
			Flags: bytealloc.AllocatorCreateFirstFit,
		},
		"BestFitSingle": {
			Flags: bytealloc.AllocatorCreateSinglyLinked,
		},
		"Legacy": bytealloc.LegacyOptions(),
	}

	for name, options := range testCases {
		t.Run(name, func(t *testing.T) {
			for seed := int64(1); seed <= 3; seed++ {
				runRandomSequence(t, options, seed)
			}
		})
	}
}
