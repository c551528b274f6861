// enc624j600/ring.go

package enc624j600

// Receive ring arithmetic. The ring spans [rxStart, rxEnd] and every frame
// starts on an even address.

const ringSize = rxEnd + 1 - rxStart

// tailFor returns the ERXTAIL value that releases everything before next.
// The tail trails the oldest unread frame by two bytes.
func tailFor(next uint16) uint16 {
	if next <= rxStart {
		return rxTailInit
	}
	return next - 2
}

// ringUsed returns the bytes between tail+2 and head, the frames the chip
// has written that the driver has not released.
func ringUsed(head, tail uint16) uint16 {
	start := tail + 2
	if start > rxEnd {
		start = rxStart
	}
	if head >= start {
		return head - start
	}
	return ringSize - (start - head)
}

// validFramePointer reports whether p can be a frame start inside the ring.
func validFramePointer(p uint16) bool {
	return p >= rxStart && p <= rxEnd && p&1 == 0
}
