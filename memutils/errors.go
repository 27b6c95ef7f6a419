package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

var (
	// ErrNoMemory is returned when no free block can satisfy the padded size of an allocation request
	ErrNoMemory = errors.New("no free block large enough for the requested layout")

	// ErrInvalidFree is returned when an address passed for release is not the payload of a live allocation.
	// This covers wild pointers as well as double frees.
	ErrInvalidFree = errors.New("address does not belong to a live allocation")

	// ErrLayoutMismatch is returned when the layout passed for release does not fit the block that owns
	// the released address
	ErrLayoutMismatch = errors.New("layout does not match the owning allocation")

	// ErrInvalidRegion is returned when a span of memory cannot be registered
	ErrInvalidRegion = errors.New("invalid memory region")

	// ErrAlreadyInitialized is returned when Init is called on an allocator that already owns memory
	ErrAlreadyInitialized = errors.New("allocator is already initialized")
)
