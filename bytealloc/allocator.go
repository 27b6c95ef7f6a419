package bytealloc

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapkit/bytealloc/internal/blockmem"
	"github.com/vkngwrapper/heapkit/memutils"
	"golang.org/x/exp/slog"
)

// Layout describes an allocation request: a size in bytes and a power-of-two alignment
type Layout struct {
	Size  int
	Align uint
}

// NewLayout builds a Layout, verifying that size is not negative and align is a power of two
func NewLayout(size int, align uint) (Layout, error) {
	layout := Layout{Size: size, Align: align}
	return layout, layout.validate()
}

func (l Layout) validate() error {
	if l.Size < 0 {
		return errors.Newf("invalid allocation size %d", l.Size)
	}

	return memutils.CheckPow2(l.Align, "alignment")
}

// Allocator hands out byte ranges from memory spans supplied by the caller. All bookkeeping is
// stored in headers at the start of each block inside those spans.
//
// An Allocator is not safe for concurrent use. Wrap it in a Locked, or otherwise guarantee that
// no two calls overlap.
type Allocator struct {
	logger       *slog.Logger
	createFlags  CreateFlags
	minAlignment uint
	splitSlack   int

	space       *blockmem.Space
	memoryStart uintptr
	memorySize  int
	firstBlock  uintptr
	usedBytes   int
}

var _ memutils.Validatable = &Allocator{}

func (a *Allocator) firstFit() bool {
	return a.createFlags&AllocatorCreateFirstFit != 0
}

func (a *Allocator) doublyLinked() bool {
	return a.space.Linkage() == blockmem.LinkageDouble
}

func (a *Allocator) coalesceOnAlloc() bool {
	return a.createFlags&AllocatorCreateDeallocOnlyCoalesce == 0
}

// HeaderSize returns the number of bytes each block header consumes
func (a *Allocator) HeaderSize() int { return a.space.HeaderSize() }

// MemoryStart returns the address of the first span registered with the allocator, or 0
func (a *Allocator) MemoryStart() uintptr { return a.memoryStart }

// TotalBytes returns the number of bytes registered with the allocator, headers included
func (a *Allocator) TotalBytes() int { return a.memorySize }

// UsedBytes returns the number of bytes charged to live allocations: requested sizes plus the
// alignment padding in front of each allocation
func (a *Allocator) UsedBytes() int { return a.usedBytes }

// AvailableBytes returns TotalBytes minus UsedBytes. Header overhead is not subtracted, so a
// single allocation of this size will never succeed.
func (a *Allocator) AvailableBytes() int { return a.memorySize - a.usedBytes }

// Init registers the first span of memory. It fails if the allocator already owns memory.
func (a *Allocator) Init(mem []byte) error {
	a.logger.Debug("Allocator::Init", slog.Int("Size", len(mem)))

	if a.memorySize != 0 {
		return errors.Wrapf(memutils.ErrAlreadyInitialized, "allocator already owns %d bytes", a.memorySize)
	}

	return a.addMemory(mem)
}

// AddMemory registers an additional span. The span becomes a free block at the tail of the block
// directory, whatever its address. It only merges with an existing block if it is the in-place
// continuation of the span that holds the current tail block.
func (a *Allocator) AddMemory(mem []byte) error {
	a.logger.Debug("Allocator::AddMemory", slog.Int("Size", len(mem)))

	return a.addMemory(mem)
}

func (a *Allocator) addMemory(mem []byte) error {
	start, err := a.space.AddRegion(mem)
	if err != nil {
		return err
	}

	newBlock := block{
		addr: start,
		Header: blockmem.Header{
			Start:  start,
			Size:   len(mem) - a.HeaderSize(),
			IsFree: true,
		},
	}

	tail, hasTail := a.tailBlock()
	if hasTail {
		tail.Next = start
		a.storeBlock(tail)
		if a.doublyLinked() {
			newBlock.Prev = tail.addr
		}
	} else {
		a.firstBlock = start
	}
	a.storeBlock(newBlock)

	if a.memorySize == 0 {
		a.memoryStart = start
	}
	a.memorySize += len(mem)

	if a.coalesceOnAlloc() {
		a.coalesce()
	}

	memutils.DebugValidate(a)
	return nil
}

func (a *Allocator) effectiveAlignment(layout Layout) (uint, error) {
	err := layout.validate()
	if err != nil {
		return 0, err
	}

	if layout.Align < a.minAlignment {
		return a.minAlignment, nil
	}

	return layout.Align, nil
}

// Alloc reserves layout.Size bytes aligned to at least layout.Align and returns the address of
// the first byte. The returned range never overlaps another live allocation. A zero-size
// allocation may sit at the very end of its block's payload, so its address can equal the
// header address of the block after it; it is still released through Dealloc as usual. If no free block
// can hold the request, memutils.ErrNoMemory is returned and nothing is modified.
func (a *Allocator) Alloc(layout Layout) (uintptr, error) {
	a.logger.Debug("Allocator::Alloc", slog.Int("Size", layout.Size), slog.Uint64("Alignment", uint64(layout.Align)))

	alignment, err := a.effectiveAlignment(layout)
	if err != nil {
		return 0, err
	}

	request, found := a.createAllocationRequest(layout.Size, alignment)
	if !found {
		a.logger.Debug("    no free block satisfies request",
			slog.Int("AvailableBytes", a.AvailableBytes()),
			slog.Int("LargestFreeBlock", a.LargestFreeBlock()),
		)
		return 0, errors.Wrapf(memutils.ErrNoMemory, "size %d alignment %d", layout.Size, alignment)
	}

	a.commitAllocationRequest(request)

	if a.coalesceOnAlloc() {
		a.coalesce()
	}

	memutils.DebugValidate(a)
	return request.address, nil
}

// Dealloc releases the allocation at addr. layout must be the layout the allocation was made
// with: it determines how many bytes are returned to the pool.
//
// An address that is not the payload of a live allocation, including one that was already
// released, yields memutils.ErrInvalidFree. A layout that cannot have produced the allocation
// yields memutils.ErrLayoutMismatch, as does an alignment that is not a power of two. A smaller
// size is only detected when the difference is at least a header plus the split slack; below
// that the block looks the same either way. Nothing is modified on error.
func (a *Allocator) Dealloc(addr uintptr, layout Layout) error {
	a.logger.Debug("Allocator::Dealloc", slog.Any("Address", addr), slog.Int("Size", layout.Size), slog.Uint64("Alignment", uint64(layout.Align)))

	owner, found := a.findOwner(addr)
	if !found {
		return errors.Wrapf(memutils.ErrInvalidFree, "address %#x", addr)
	}

	alignment, err := a.effectiveAlignment(layout)
	if err != nil {
		return errors.Wrap(memutils.ErrLayoutMismatch, err.Error())
	}
	if memutils.AlignDown(addr, alignment) != addr {
		return errors.Wrapf(memutils.ErrLayoutMismatch, "address %#x is not aligned to %d", addr, alignment)
	}

	padding := int(addr - a.dataAddr(owner))
	if padding >= int(alignment) {
		return errors.Wrapf(memutils.ErrLayoutMismatch, "address %#x is %d bytes into its block, more than alignment %d can explain", addr, padding, alignment)
	}

	// Alloc splits off anything at least this large, so a bigger leftover means the layout is
	// smaller than the one the block was allocated with
	leftover := owner.Size - padding - layout.Size
	if leftover < 0 || leftover >= a.HeaderSize()+a.requiredSlack(alignment) {
		return errors.Wrapf(memutils.ErrLayoutMismatch, "size %d does not fit the %d byte block at %#x", layout.Size, owner.Size, owner.addr)
	}

	charged := layout.Size + padding
	if charged > a.usedBytes {
		return errors.Wrapf(memutils.ErrLayoutMismatch, "size %d exceeds the %d bytes in use", layout.Size, a.usedBytes)
	}

	a.usedBytes -= charged
	owner.IsFree = true
	a.storeBlock(owner)

	a.coalesce()

	memutils.DebugValidate(a)
	return nil
}

// Bytes returns a view of n bytes of managed memory starting at addr, typically the address
// returned by Alloc. The range must lie inside a single registered span.
func (a *Allocator) Bytes(addr uintptr, n int) ([]byte, error) {
	return a.space.Slice(addr, n)
}
