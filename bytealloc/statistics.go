package bytealloc

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/heapkit/memutils"
)

const (
	blockTypeFree = "FREE"
	blockTypeUsed = "USED"
)

// AddStatistics sums this allocator's statistics into stats
func (a *Allocator) AddStatistics(stats *memutils.Statistics) {
	stats.RegionCount += a.space.RegionCount()
	stats.TotalBytes += a.memorySize
	stats.AllocationBytes += a.usedBytes

	for current := a.firstBlock; current != 0; {
		b := a.loadBlock(current)
		stats.BlockCount++
		stats.HeaderBytes += a.HeaderSize()
		if !b.IsFree {
			stats.AllocationCount++
		}

		current = b.Next
	}
}

// AddDetailedStatistics sums this allocator's statistics, including the spread of free and used
// block sizes, into stats
func (a *Allocator) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.RegionCount += a.space.RegionCount()
	stats.TotalBytes += a.memorySize
	stats.AllocationBytes += a.usedBytes

	for current := a.firstBlock; current != 0; {
		b := a.loadBlock(current)
		stats.BlockCount++
		stats.HeaderBytes += a.HeaderSize()
		if b.IsFree {
			stats.AddUnusedRange(b.Size)
		} else {
			stats.AddAllocation(b.Size)
		}

		current = b.Next
	}
}

// PrintDetailedMap writes a JSON object describing the allocator and every block in the
// directory, in directory order
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	a.AddDetailedStatistics(&stats)

	obj := writer.Object()
	defer obj.End()

	obj.Name("TotalBytes").Int(stats.TotalBytes)
	obj.Name("UsedBytes").Int(stats.AllocationBytes)
	obj.Name("AvailableBytes").Int(a.AvailableBytes())
	obj.Name("HeaderSize").Int(a.HeaderSize())
	obj.Name("Flags").String(a.createFlags.String())
	obj.Name("Allocations").Int(stats.AllocationCount)
	obj.Name("UnusedRanges").Int(stats.UnusedRangeCount)
	obj.Name("LargestFreeBlock").Int(a.LargestFreeBlock())

	arrayState := obj.Name("Blocks").Array()
	defer arrayState.End()

	_ = a.VisitAllBlocks(func(info BlockInfo) error {
		blockObj := arrayState.Object()
		defer blockObj.End()

		blockObj.Name("Address").String(fmt.Sprintf("%#x", info.Address))
		if info.Free {
			blockObj.Name("Type").String(blockTypeFree)
		} else {
			blockObj.Name("Type").String(blockTypeUsed)
		}
		blockObj.Name("Size").Int(info.Size)

		return nil
	})
}
