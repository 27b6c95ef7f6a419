package bytealloc

import (
	"math"

	"github.com/vkngwrapper/heapkit/memutils"
)

// allocationRequest records where and how an allocation will be placed. It is produced without
// touching the directory so that a failed search leaves everything unchanged.
type allocationRequest struct {
	block   block
	address uintptr
	size    int
	padding int
	split   bool
}

// createAllocationRequest walks the directory once looking for a free block that can hold size
// bytes at the given alignment. Best fit keeps the candidate with the least unused space, and the
// earliest candidate wins ties. First fit stops at the first candidate.
func (a *Allocator) createAllocationRequest(size int, alignment uint) (allocationRequest, bool) {
	memutils.DebugCheckPow2(alignment, "alignment")

	var request allocationRequest
	found := false
	bestWaste := math.MaxInt

	for current := a.firstBlock; current != 0; {
		b := a.loadBlock(current)
		current = b.Next

		if !b.IsFree {
			continue
		}

		dataAddr := a.dataAddr(b)
		alignedAddr := memutils.AlignUp(dataAddr, alignment)
		if alignedAddr < dataAddr {
			continue
		}
		padding := int(alignedAddr - dataAddr)

		if b.Size < padding || b.Size-padding < size {
			continue
		}

		// Padding plus whatever the request leaves at the end of the block
		waste := b.Size - size
		if waste >= bestWaste {
			continue
		}

		bestWaste = waste
		found = true
		request = allocationRequest{
			block:   b,
			address: alignedAddr,
			size:    size,
			padding: padding,
		}

		if a.firstFit() {
			break
		}
	}

	if !found {
		return request, false
	}

	request.split = request.block.Size-request.size-request.padding >= a.HeaderSize()+a.requiredSlack(alignment)
	return request, true
}

func (a *Allocator) requiredSlack(alignment uint) int {
	if a.splitSlack > 0 {
		return a.splitSlack
	}

	return int(alignment)
}

// commitAllocationRequest marks the chosen block used, splitting off a free trailing block when
// the request leaves room for one
func (a *Allocator) commitAllocationRequest(request allocationRequest) {
	b := request.block
	consumed := request.size + request.padding

	if request.split {
		remainderAddr := a.dataAddr(b) + uintptr(consumed)
		remainder := block{addr: remainderAddr}
		remainder.Start = remainderAddr
		remainder.Size = b.Size - consumed - a.HeaderSize()
		remainder.IsFree = true
		remainder.Next = b.Next
		if a.doublyLinked() {
			remainder.Prev = b.addr

			if b.Next != 0 {
				next := a.loadBlock(b.Next)
				next.Prev = remainderAddr
				a.storeBlock(next)
			}
		}
		a.storeBlock(remainder)

		b.Size = consumed
		b.Next = remainderAddr
	}

	b.IsFree = false
	a.storeBlock(b)

	a.usedBytes += consumed
}
