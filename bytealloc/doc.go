// Package bytealloc implements a byte-granularity allocator over spans of memory supplied by the
// caller. Spans are plain byte slices; addresses handed out are addresses of bytes inside them.
//
// Each span is carved into blocks. A block is a fixed-size header followed by its payload, and the
// headers form a linked chain, the block directory, stored entirely inside the managed memory.
// Allocation searches the chain for a free block, splits off any large remainder as a new free
// block, and marks the rest used. Release marks the owning block free and merges it with free
// neighbours in the same span.
//
// # Variants
//
// The zero-value CreateOptions give a best-fit allocator with doubly linked headers, an alignment
// floor of 8 bytes, and a coalescing pass after every allocation, release and growth.
// LegacyOptions give the reduced allocator: first fit, singly linked headers, caller alignment
// used unmodified, and coalescing only on release. The flags may also be combined freely.
//
// # Usage Example
//
//	allocator, err := bytealloc.New(logger, bytealloc.CreateOptions{})
//	if err != nil {
//	    return err
//	}
//	err = allocator.Init(make([]byte, 64*1024))
//	if err != nil {
//	    return err
//	}
//
//	layout := bytealloc.Layout{Size: 256, Align: 16}
//	addr, err := allocator.Alloc(layout)
//	if err != nil {
//	    return err
//	}
//	buf, err := allocator.Bytes(addr, layout.Size)
//	...
//	err = allocator.Dealloc(addr, layout)
//
// # Safety
//
// Headers are read and written at raw addresses by the internal blockmem package and nowhere
// else. The allocator cannot detect use after free or writes past the end of an allocation; either
// can overwrite a header and corrupt the directory. Validate checks the directory and building
// with the debug_mem_utils tag runs it after every mutating call.
//
// An Allocator is not safe for concurrent use; see Locked.
package bytealloc
