package bytealloc

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
)

// Validate walks the block directory and checks every structural invariant: the chain is acyclic,
// every header lies inside a registered span and records its own address, back links mirror
// forward links, chain neighbours from the same span are contiguous, no two adjacent blocks are
// both free after coalescing, headers plus payloads add up to the registered bytes, and the used
// byte count fits inside the used blocks.
//
// When the allocator is functioning correctly this never returns an error. It is O(blocks) and
// meant for diagnostics and tests.
func (a *Allocator) Validate() error {
	headerSize := a.HeaderSize()
	visited := swiss.NewMap[uintptr, struct{}](64)

	var prev block
	hasPrev := false
	calculatedSize := 0
	usedCapacity := 0

	for current := a.firstBlock; current != 0; {
		if visited.Has(current) {
			return errors.Errorf("block directory contains a cycle through the block at %#x", current)
		}
		visited.Put(current, struct{}{})

		if !a.space.Contains(current, headerSize) {
			return errors.Errorf("block header at %#x lies outside every registered span", current)
		}

		b := a.loadBlock(current)
		if b.Start != current {
			return errors.Errorf("block header at %#x records a start address of %#x", current, b.Start)
		}
		if b.Size < 0 || !a.space.Contains(current, headerSize+b.Size) {
			return errors.Errorf("block at %#x has a payload of %d bytes that extends past its span", current, b.Size)
		}

		if a.doublyLinked() {
			expectedPrev := uintptr(0)
			if hasPrev {
				expectedPrev = prev.addr
			}
			if b.Prev != expectedPrev {
				return errors.Errorf("block at %#x lists %#x as its previous block, but the reverse reference is %#x", current, b.Prev, expectedPrev)
			}
		}

		if hasPrev && a.space.SameRegion(prev.addr, b.addr) {
			if a.endAddr(prev) != b.addr {
				return errors.Errorf("block at %#x does not end at the start of the next block at %#x", prev.addr, b.addr)
			}
			if a.coalesceOnAlloc() && prev.IsFree && b.IsFree {
				return errors.Errorf("adjacent blocks at %#x and %#x are both free", prev.addr, b.addr)
			}
		}

		calculatedSize += headerSize + b.Size
		if !b.IsFree {
			usedCapacity += b.Size
		}

		prev = b
		hasPrev = true
		current = b.Next
	}

	if calculatedSize != a.memorySize {
		return errors.Errorf("the allocator owns %d bytes, but the blocks only added up to %d", a.memorySize, calculatedSize)
	}

	if a.usedBytes < 0 || a.usedBytes > usedCapacity {
		return errors.Errorf("the allocator has charged %d bytes, but the used blocks only hold %d", a.usedBytes, usedCapacity)
	}

	return nil
}
