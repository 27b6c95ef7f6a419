package bytealloc

import "github.com/vkngwrapper/heapkit/bytealloc/internal/blockmem"

// block is a header together with the address it was read from. Changes to a block are not
// visible in managed memory until storeBlock is called.
type block struct {
	addr uintptr
	blockmem.Header
}

func (a *Allocator) loadBlock(addr uintptr) block {
	return block{addr: addr, Header: a.space.ReadHeader(addr)}
}

func (a *Allocator) storeBlock(b block) {
	a.space.WriteHeader(b.addr, b.Header)
}

func (a *Allocator) dataAddr(b block) uintptr {
	return b.addr + uintptr(a.HeaderSize())
}

func (a *Allocator) endAddr(b block) uintptr {
	return a.dataAddr(b) + uintptr(b.Size)
}

// physicallyAdjacent reports whether next begins exactly where prev ends, inside one region.
// Chain neighbours from different spans are never adjacent, even if their addresses touch.
func (a *Allocator) physicallyAdjacent(prev, next block) bool {
	return a.endAddr(prev) == next.addr && a.space.SameRegion(prev.addr, next.addr)
}

func (a *Allocator) tailBlock() (block, bool) {
	if a.firstBlock == 0 {
		return block{}, false
	}

	current := a.loadBlock(a.firstBlock)
	for current.Next != 0 {
		current = a.loadBlock(current.Next)
	}

	return current, true
}

// findOwner locates the used block whose payload contains addr. The end of the payload is
// included so that zero-byte allocations, whose address sits at the end of their block, can be
// found; that address is always a header, never another block's payload.
func (a *Allocator) findOwner(addr uintptr) (block, bool) {
	for current := a.firstBlock; current != 0; {
		b := a.loadBlock(current)
		if !b.IsFree && addr >= a.dataAddr(b) && addr <= a.endAddr(b) {
			return b, true
		}

		current = b.Next
	}

	return block{}, false
}

// BlockInfo describes one block in the directory
type BlockInfo struct {
	// Address is the address of the block header
	Address uintptr
	// Data is the address of the first payload byte
	Data uintptr
	// Size is the payload capacity in bytes
	Size int
	// Free is true if the block is not handed out
	Free bool
}

// VisitAllBlocks calls handleBlock once for every block in directory order, stopping at the
// first error. Blocks must not be allocated or released from inside the callback.
func (a *Allocator) VisitAllBlocks(handleBlock func(info BlockInfo) error) error {
	for current := a.firstBlock; current != 0; {
		b := a.loadBlock(current)
		err := handleBlock(BlockInfo{
			Address: b.addr,
			Data:    a.dataAddr(b),
			Size:    b.Size,
			Free:    b.IsFree,
		})
		if err != nil {
			return err
		}

		current = b.Next
	}

	return nil
}

// LargestFreeBlock returns the payload size of the largest free block. It is a fragmentation
// diagnostic and plays no part in choosing blocks.
func (a *Allocator) LargestFreeBlock() int {
	largest := 0
	for current := a.firstBlock; current != 0; {
		b := a.loadBlock(current)
		if b.IsFree && b.Size > largest {
			largest = b.Size
		}

		current = b.Next
	}

	return largest
}

// BlockCount returns the number of blocks in the directory, free and used
func (a *Allocator) BlockCount() int {
	count := 0
	for current := a.firstBlock; current != 0; current = a.loadBlock(current).Next {
		count++
	}

	return count
}

// FreeBlockCount returns the number of free blocks in the directory
func (a *Allocator) FreeBlockCount() int {
	count := 0
	for current := a.firstBlock; current != 0; {
		b := a.loadBlock(current)
		if b.IsFree {
			count++
		}

		current = b.Next
	}

	return count
}
