package memutils

import "math"

// Statistics is a cheap summary of the memory managed by one or more allocators
type Statistics struct {
	// RegionCount is the number of distinct spans registered with the allocator. Spans that were
	// registered as the literal continuation of an earlier span count once.
	RegionCount int
	// BlockCount is the number of block headers in the directory, free and used
	BlockCount int
	// AllocationCount is the number of blocks currently handed out
	AllocationCount int
	// TotalBytes is the number of bytes registered with the allocator, headers included
	TotalBytes int
	// AllocationBytes is the number of bytes charged to live allocations, alignment padding included
	AllocationBytes int
	// HeaderBytes is the number of bytes currently consumed by block headers
	HeaderBytes int
}

func (s *Statistics) Clear() {
	s.RegionCount = 0
	s.BlockCount = 0
	s.AllocationCount = 0
	s.TotalBytes = 0
	s.AllocationBytes = 0
	s.HeaderBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.RegionCount += other.RegionCount
	s.BlockCount += other.BlockCount
	s.AllocationCount += other.AllocationCount
	s.TotalBytes += other.TotalBytes
	s.AllocationBytes += other.AllocationBytes
	s.HeaderBytes += other.HeaderBytes
}

// DetailedStatistics extends Statistics with the distribution of block payload sizes. Allocation
// sizes are block payload capacities, which may exceed the bytes charged when a block was consumed
// without being split.
type DetailedStatistics struct {
	Statistics
	UnusedRangeCount   int
	UnusedRangeBytes   int
	AllocationSizeMin  int
	AllocationSizeMax  int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.UnusedRangeBytes = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	s.UnusedRangeCount++
	s.UnusedRangeBytes += size

	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

// AddAllocation records a used block of the given payload capacity. It does not touch
// AllocationBytes, which tracks charged bytes rather than capacity.
func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.UnusedRangeCount += other.UnusedRangeCount
	s.UnusedRangeBytes += other.UnusedRangeBytes

	if other.UnusedRangeSizeMin < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = other.UnusedRangeSizeMin
	}

	if other.UnusedRangeSizeMax > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = other.UnusedRangeSizeMax
	}

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}
