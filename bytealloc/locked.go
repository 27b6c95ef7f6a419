package bytealloc

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/heapkit/memutils"
)

// Locked serializes every call to an Allocator behind one mutex so that it can be shared between
// goroutines. It also remembers the layout of every allocation made through it, which lets callers
// release memory with Free without repeating the layout.
//
// Allocations made directly on the wrapped Allocator are invisible to Free but can still be
// released with Dealloc.
type Locked struct {
	mutex     sync.Mutex
	allocator *Allocator
	live      *swiss.Map[uintptr, Layout]
}

// NewLocked wraps allocator. The allocator must not be used directly while the Locked is in use.
func NewLocked(allocator *Allocator) *Locked {
	return &Locked{
		allocator: allocator,
		live:      swiss.NewMap[uintptr, Layout](64),
	}
}

// Init registers the first span of memory with the wrapped allocator
func (l *Locked) Init(mem []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.allocator.Init(mem)
}

// AddMemory registers an additional span with the wrapped allocator
func (l *Locked) AddMemory(mem []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.allocator.AddMemory(mem)
}

// Alloc reserves memory for layout and records the layout so the allocation can later be released
// with Free
func (l *Locked) Alloc(layout Layout) (uintptr, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	addr, err := l.allocator.Alloc(layout)
	if err != nil {
		return 0, err
	}

	l.live.Put(addr, layout)
	return addr, nil
}

// Dealloc releases the allocation at addr using an explicit layout, as Allocator.Dealloc does
func (l *Locked) Dealloc(addr uintptr, layout Layout) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	err := l.allocator.Dealloc(addr, layout)
	if err != nil {
		return err
	}

	l.live.Delete(addr)
	return nil
}

// Free releases an allocation made through this Locked using the layout it was made with
func (l *Locked) Free(addr uintptr) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	layout, ok := l.live.Get(addr)
	if !ok {
		return errors.Wrapf(memutils.ErrInvalidFree, "address %#x was not allocated through this wrapper", addr)
	}

	err := l.allocator.Dealloc(addr, layout)
	if err != nil {
		return err
	}

	l.live.Delete(addr)
	return nil
}

// LiveAllocations returns the number of allocations made through this Locked that have not been
// released
func (l *Locked) LiveAllocations() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.live.Count()
}

// TotalBytes returns the number of bytes registered with the wrapped allocator
func (l *Locked) TotalBytes() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.allocator.TotalBytes()
}

// UsedBytes returns the number of bytes charged to live allocations
func (l *Locked) UsedBytes() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.allocator.UsedBytes()
}

// AvailableBytes returns TotalBytes minus UsedBytes
func (l *Locked) AvailableBytes() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.allocator.AvailableBytes()
}

// Do runs f with exclusive access to the wrapped allocator
func (l *Locked) Do(f func(allocator *Allocator) error) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return f(l.allocator)
}
