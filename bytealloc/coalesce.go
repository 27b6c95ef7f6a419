package bytealloc

// coalesce walks the directory once, merging every free block with free, physically adjacent
// neighbours. A block keeps absorbing its successor until the successor is used or lives in
// another span, so runs of any length collapse in a single pass. Doubly linked directories also
// fold a block into a free predecessor and resume from the predecessor.
func (a *Allocator) coalesce() {
	for current := a.firstBlock; current != 0; {
		b := a.loadBlock(current)
		if !b.IsFree {
			current = b.Next
			continue
		}

		if b.Next != 0 {
			next := a.loadBlock(b.Next)
			if next.IsFree && a.physicallyAdjacent(b, next) {
				a.absorbNext(b, next)
				continue
			}
		}

		if a.doublyLinked() && b.Prev != 0 {
			prev := a.loadBlock(b.Prev)
			if prev.IsFree && a.physicallyAdjacent(prev, b) {
				a.absorbNext(prev, b)
				current = prev.addr
				continue
			}
		}

		current = b.Next
	}
}

// absorbNext extends b over next, which must directly follow it, and unlinks next. next's header
// becomes part of b's payload.
func (a *Allocator) absorbNext(b block, next block) {
	b.Size += next.Size + a.HeaderSize()
	b.Next = next.Next
	a.storeBlock(b)

	if a.doublyLinked() && next.Next != 0 {
		after := a.loadBlock(next.Next)
		after.Prev = b.addr
		a.storeBlock(after)
	}
}
