package bytealloc_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heapkit/bytealloc"
	"github.com/vkngwrapper/heapkit/memutils"
)

func TestDetailedStatistics(t *testing.T) {
	allocator := readyAllocator(t, bytealloc.CreateOptions{}, make([]byte, 4096))
	header := allocator.HeaderSize()

	var stats memutils.DetailedStatistics
	stats.Clear()
	allocator.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			RegionCount:     1,
			BlockCount:      1,
			AllocationCount: 0,
			TotalBytes:      4096,
			AllocationBytes: 0,
			HeaderBytes:     header,
		},
		UnusedRangeCount:   1,
		UnusedRangeBytes:   4096 - header,
		AllocationSizeMin:  math.MaxInt,
		AllocationSizeMax:  0,
		UnusedRangeSizeMin: 4096 - header,
		UnusedRangeSizeMax: 4096 - header,
	}, stats)

	// 104 keeps the remainder's payload 8-aligned, so the second request pays no padding
	first, err := allocator.Alloc(bytealloc.Layout{Size: 104, Align: 8})
	require.NoError(t, err)
	second, err := allocator.Alloc(bytealloc.Layout{Size: 200, Align: 8})
	require.NoError(t, err)
	require.Equal(t, first+uintptr(104+header), second)
	require.NoError(t, allocator.Dealloc(first, bytealloc.Layout{Size: 104, Align: 8}))

	stats.Clear()
	allocator.AddDetailedStatistics(&stats)

	tail := 4096 - 3*header - 304
	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			RegionCount:     1,
			BlockCount:      3,
			AllocationCount: 1,
			TotalBytes:      4096,
			AllocationBytes: 200,
			HeaderBytes:     3 * header,
		},
		UnusedRangeCount:   2,
		UnusedRangeBytes:   104 + tail,
		AllocationSizeMin:  200,
		AllocationSizeMax:  200,
		UnusedRangeSizeMin: 104,
		UnusedRangeSizeMax: tail,
	}, stats)

	var summary memutils.Statistics
	allocator.AddStatistics(&summary)
	require.Equal(t, stats.Statistics, summary)
}

func TestStatisticsAcrossAllocators(t *testing.T) {
	first := readyAllocator(t, bytealloc.CreateOptions{}, make([]byte, 4096))
	second := readyAllocator(t, bytealloc.LegacyOptions(), make([]byte, 2048), make([]byte, 1024))

	var stats memutils.Statistics
	first.AddStatistics(&stats)
	second.AddStatistics(&stats)

	require.Equal(t, 3, stats.RegionCount)
	require.Equal(t, 3, stats.BlockCount)
	require.Equal(t, 4096+2048+1024, stats.TotalBytes)
	require.Equal(t, first.HeaderSize()+2*second.HeaderSize(), stats.HeaderBytes)
}

type detailedMap struct {
	TotalBytes       int
	UsedBytes        int
	AvailableBytes   int
	HeaderSize       int
	Flags            string
	Allocations      int
	UnusedRanges     int
	LargestFreeBlock int
	Blocks           []struct {
		Address string
		Type    string
		Size    int
	}
}

func TestPrintDetailedMap(t *testing.T) {
	allocator := readyAllocator(t, bytealloc.CreateOptions{}, make([]byte, 4096))
	header := allocator.HeaderSize()

	_, err := allocator.Alloc(bytealloc.Layout{Size: 100, Align: 8})
	require.NoError(t, err)

	writer := jwriter.NewWriter()
	allocator.PrintDetailedMap(&writer)
	require.NoError(t, writer.Error())

	var out detailedMap
	require.NoError(t, json.Unmarshal(writer.Bytes(), &out))

	require.Equal(t, 4096, out.TotalBytes)
	require.Equal(t, 100, out.UsedBytes)
	require.Equal(t, 3996, out.AvailableBytes)
	require.Equal(t, header, out.HeaderSize)
	require.Equal(t, "None", out.Flags)
	require.Equal(t, 1, out.Allocations)
	require.Equal(t, 1, out.UnusedRanges)
	require.Equal(t, 4096-2*header-100, out.LargestFreeBlock)

	require.Len(t, out.Blocks, 2)
	require.Equal(t, "USED", out.Blocks[0].Type)
	require.Equal(t, 100, out.Blocks[0].Size)
	require.Equal(t, "FREE", out.Blocks[1].Type)
	require.Equal(t, 4096-2*header-100, out.Blocks[1].Size)
}
