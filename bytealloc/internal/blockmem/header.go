package blockmem

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// WordSize is the native pointer width in bytes. Every header field occupies one word.
const WordSize = int(unsafe.Sizeof(uintptr(0)))

// Linkage selects whether block headers carry a back link
type Linkage uint8

const (
	// LinkageDouble headers carry both next and prev addresses
	LinkageDouble Linkage = iota
	// LinkageSingle headers carry only a next address
	LinkageSingle
)

var linkageMapping = map[Linkage]string{
	LinkageDouble: "Double",
	LinkageSingle: "Single",
}

func (l Linkage) String() string {
	return linkageMapping[l]
}

// Field offsets within a header. The is_free flag is a single byte followed by padding up to
// the next word boundary.
const (
	startOffset  = 0
	sizeOffset   = WordSize
	isFreeOffset = 2 * WordSize
	nextOffset   = 3 * WordSize
	prevOffset   = 4 * WordSize
)

// HeaderSize returns the number of bytes a header occupies for the given linkage
func HeaderSize(linkage Linkage) int {
	if linkage == LinkageSingle {
		return 4 * WordSize
	}

	return 5 * WordSize
}

// Header is the decoded form of the metadata stored at the start of every block. An address of 0
// in Next or Prev means there is no such block.
type Header struct {
	Start  uintptr
	Size   int
	IsFree bool
	Next   uintptr
	Prev   uintptr
}

func putWord(b []byte, value uint64) {
	if WordSize == 8 {
		binary.NativeEndian.PutUint64(b, value)
		return
	}
	binary.NativeEndian.PutUint32(b, uint32(value))
}

func word(b []byte) uint64 {
	if WordSize == 8 {
		return binary.NativeEndian.Uint64(b)
	}
	return uint64(binary.NativeEndian.Uint32(b))
}

func encodeHeader(b []byte, h Header, linkage Linkage) {
	putWord(b[startOffset:], uint64(h.Start))
	putWord(b[sizeOffset:], uint64(h.Size))
	putWord(b[isFreeOffset:], 0)
	if h.IsFree {
		b[isFreeOffset] = 1
	}
	putWord(b[nextOffset:], uint64(h.Next))
	if linkage == LinkageDouble {
		putWord(b[prevOffset:], uint64(h.Prev))
	}
}

func decodeHeader(b []byte, linkage Linkage) Header {
	h := Header{
		Start:  uintptr(word(b[startOffset:])),
		Size:   int(word(b[sizeOffset:])),
		IsFree: b[isFreeOffset] != 0,
		Next:   uintptr(word(b[nextOffset:])),
	}
	if linkage == LinkageDouble {
		h.Prev = uintptr(word(b[prevOffset:]))
	}

	return h
}

// ReadHeader decodes the header stored at addr.
//
// This is unchecked beyond region bounds: the caller must guarantee that addr is the start of a
// live block. Reading any other address returns whatever bytes happen to be there. ReadHeader
// panics if the header would extend past the region containing addr.
func (s *Space) ReadHeader(addr uintptr) Header {
	b, err := s.Slice(addr, s.headerSize)
	if err != nil {
		panic(fmt.Sprintf("reading block header at %#x: %+v", addr, err))
	}

	return decodeHeader(b, s.linkage)
}

// WriteHeader encodes h into the memory at addr, overwriting whatever was there.
//
// This is unchecked beyond region bounds: the caller must guarantee that addr does not overlap a
// live allocation's payload. WriteHeader panics if the header would extend past the region
// containing addr.
func (s *Space) WriteHeader(addr uintptr, h Header) {
	b, err := s.Slice(addr, s.headerSize)
	if err != nil {
		panic(fmt.Sprintf("writing block header at %#x: %+v", addr, err))
	}

	encodeHeader(b, h, s.linkage)
}
