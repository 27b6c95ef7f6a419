// Package blockmem owns the spans of memory handed to an allocator and is the only place where
// that memory is reinterpreted as block headers. Everything above this package sees headers as
// plain Header values read from and written to addresses.
package blockmem

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapkit/memutils"
	"golang.org/x/exp/slices"
)

type region struct {
	base uintptr
	mem  []byte
}

func (r region) end() uintptr {
	return r.base + uintptr(len(r.mem))
}

// Space is the set of disjoint regions registered with one allocator. Holding the slices keeps the
// memory reachable for as long as the Space is, and Go never moves heap memory, so the base
// addresses stay valid.
type Space struct {
	linkage    Linkage
	headerSize int
	regions    []region
}

// NewSpace creates an empty Space whose headers use the provided linkage
func NewSpace(linkage Linkage) *Space {
	return &Space{
		linkage:    linkage,
		headerSize: HeaderSize(linkage),
	}
}

// Linkage returns the header linkage this Space was created with
func (s *Space) Linkage() Linkage { return s.linkage }

// HeaderSize returns the size in bytes of one block header
func (s *Space) HeaderSize() int { return s.headerSize }

// RegionCount returns the number of distinct regions. A span registered as the in-place
// continuation of an existing region does not add a region.
func (s *Space) RegionCount() int { return len(s.regions) }

func baseAddress(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
}

func compareRegion(r region, addr uintptr) int {
	if r.end() <= addr {
		return -1
	}
	if r.base > addr {
		return 1
	}
	return 0
}

func (s *Space) find(addr uintptr) (int, bool) {
	return slices.BinarySearchFunc(s.regions, addr, compareRegion)
}

// AddRegion registers mem and returns the address of its first byte. The span must be large
// enough to hold one header plus at least one byte and must not overlap any registered region.
//
// If mem directly follows an existing region inside the same backing array, the two are fused
// into a single region so that blocks may later be merged across the seam.
func (s *Space) AddRegion(mem []byte) (uintptr, error) {
	if len(mem) <= s.headerSize {
		return 0, errors.Wrapf(memutils.ErrInvalidRegion, "span of %d bytes cannot hold a %d byte header and any payload", len(mem), s.headerSize)
	}

	base := baseAddress(mem)
	end := base + uintptr(len(mem))
	if end < base {
		return 0, errors.Wrapf(memutils.ErrInvalidRegion, "span at %#x wraps the address space", base)
	}

	for _, r := range s.regions {
		if base < r.end() && r.base < end {
			return 0, errors.Wrapf(memutils.ErrInvalidRegion, "span [%#x, %#x) overlaps registered region [%#x, %#x)", base, end, r.base, r.end())
		}
	}

	index, _ := s.find(base)
	if index > 0 {
		prev := &s.regions[index-1]
		if prev.end() == base && cap(prev.mem)-len(prev.mem) >= len(mem) {
			extended := prev.mem[:len(prev.mem)+len(mem)]
			if &extended[len(prev.mem)] == &mem[0] {
				prev.mem = extended
				return base, nil
			}
		}
	}

	s.regions = slices.Insert(s.regions, index, region{base: base, mem: mem})
	return base, nil
}

// Contains reports whether [addr, addr+n) lies entirely within a single registered region
func (s *Space) Contains(addr uintptr, n int) bool {
	if n < 0 {
		return false
	}

	index, found := s.find(addr)
	if !found {
		return false
	}

	r := s.regions[index]
	return uint64(addr-r.base)+uint64(n) <= uint64(len(r.mem))
}

// SameRegion reports whether both addresses fall inside the same registered region
func (s *Space) SameRegion(left, right uintptr) bool {
	leftIndex, leftFound := s.find(left)
	rightIndex, rightFound := s.find(right)

	return leftFound && rightFound && leftIndex == rightIndex
}

// Slice returns a view of n bytes of managed memory starting at addr. The returned slice's
// capacity is clamped to n.
func (s *Space) Slice(addr uintptr, n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Newf("invalid length %d", n)
	}

	index, found := s.find(addr)
	if !found {
		return nil, errors.Newf("address %#x is outside every registered region", addr)
	}

	r := s.regions[index]
	offset := int(addr - r.base)
	if offset+n > len(r.mem) || offset+n < offset {
		return nil, errors.Newf("range of %d bytes at %#x extends past the end of region [%#x, %#x)", n, addr, r.base, r.end())
	}

	return r.mem[offset : offset+n : offset+n], nil
}
