package bytealloc

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapkit/bytealloc/internal/blockmem"
	"github.com/vkngwrapper/heapkit/memutils"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// AllocatorCreateFirstFit selects the first free block large enough for a request instead of
	// the block that would leave the least unused space behind
	AllocatorCreateFirstFit CreateFlags = 1 << iota
	// AllocatorCreateSinglyLinked drops the back link from block headers. Headers shrink by one
	// word, and coalescing can only merge a free block with the block after it.
	AllocatorCreateSinglyLinked
	// AllocatorCreateDeallocOnlyCoalesce skips the coalescing pass that otherwise follows every
	// allocation and every call to AddMemory. Free blocks are still merged when memory is released.
	AllocatorCreateDeallocOnlyCoalesce
)

var allocatorCreateFlagsOrder = []CreateFlags{
	AllocatorCreateFirstFit,
	AllocatorCreateSinglyLinked,
	AllocatorCreateDeallocOnlyCoalesce,
}

var allocatorCreateFlagsMapping = map[CreateFlags]string{
	AllocatorCreateFirstFit:            "AllocatorCreateFirstFit",
	AllocatorCreateSinglyLinked:        "AllocatorCreateSinglyLinked",
	AllocatorCreateDeallocOnlyCoalesce: "AllocatorCreateDeallocOnlyCoalesce",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for _, flag := range allocatorCreateFlagsOrder {
		if f&flag != 0 {
			names = append(names, allocatorCreateFlagsMapping[flag])
		}
	}

	return strings.Join(names, "|")
}

const (
	// defaultMinAlignment is the alignment floor used when CreateOptions.MinAlignment is 0
	defaultMinAlignment uint = 8
	// legacySplitSlack is the fixed number of spare bytes LegacyOptions demands before splitting
	legacySplitSlack int = 8
)

// CreateOptions contains optional settings when creating an allocator. The zero value produces the
// best-fit, doubly linked allocator.
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags

	// MinAlignment is the smallest alignment any allocation will receive. Requests with a smaller
	// alignment are rounded up to it. It must be a power of two; 0 means 8.
	MinAlignment uint

	// SplitSlack is the number of payload bytes that must be left over, beyond a new header, before
	// a free block is split. 0 means the effective alignment of the request being served.
	SplitSlack int
}

// LegacyOptions returns the options for the reduced allocator: first-fit, singly linked,
// caller alignment used unmodified, a fixed split slack of 8 bytes, and coalescing only on release
func LegacyOptions() CreateOptions {
	return CreateOptions{
		Flags:        AllocatorCreateFirstFit | AllocatorCreateSinglyLinked | AllocatorCreateDeallocOnlyCoalesce,
		MinAlignment: 1,
		SplitSlack:   legacySplitSlack,
	}
}

// New creates a new Allocator that owns no memory. Init must be called before the first allocation.
//
// logger - Receives debug records for every operation. It may be nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	minAlignment := options.MinAlignment
	if minAlignment == 0 {
		minAlignment = defaultMinAlignment
	}
	err := memutils.CheckPow2(minAlignment, "CreateOptions.MinAlignment")
	if err != nil {
		return nil, err
	}

	if options.SplitSlack < 0 {
		return nil, errors.Newf("CreateOptions.SplitSlack must not be negative, but was %d", options.SplitSlack)
	}

	linkage := blockmem.LinkageDouble
	if options.Flags&AllocatorCreateSinglyLinked != 0 {
		linkage = blockmem.LinkageSingle
	}

	allocator := &Allocator{
		logger:       logger,
		createFlags:  options.Flags,
		minAlignment: minAlignment,
		splitSlack:   options.SplitSlack,
		space:        blockmem.NewSpace(linkage),
	}

	logger.Debug("Allocator::New",
		slog.String("Flags", options.Flags.String()),
		slog.Uint64("MinAlignment", uint64(minAlignment)),
		slog.Int("SplitSlack", options.SplitSlack),
		slog.Int("HeaderSize", allocator.space.HeaderSize()),
		slog.Bool("DebugChecks", memutils.DebugChecks),
	)

	return allocator, nil
}
