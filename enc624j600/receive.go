// enc624j600/receive.go

package enc624j600

import "log/slog"

const rsvLen = 6 // receive status vector

// RSV status bits, counted from bit 16 of the vector.
const (
	RSV_LONGDROP   = 0x0001
	RSV_CARRIER    = 0x0004
	RSV_CRCERR     = 0x0010
	RSV_LENERR     = 0x0020
	RSV_RANGEERR   = 0x0040
	RSV_RXOK       = 0x0080
	RSV_MULTICAST  = 0x0100
	RSV_BROADCAST  = 0x0200
	RSV_CONTROL    = 0x0800
	RSV_PAUSE      = 0x1000
	RSV_UNKNOWNOP  = 0x2000
	RSV_VLAN       = 0x4000
	RSV_RUNTFILTER = 0x8000
)

// Header is the link-layer header of a received frame.
type Header struct {
	Destination [6]byte
	Source      [6]byte
	LengthType  [2]byte
	// Status is bits 16..31 of the receive status vector.
	Status uint16
}

// EtherType returns the length/type field as a big-endian value.
func (h *Header) EtherType() uint16 {
	return uint16(h.LengthType[0])<<8 | uint16(h.LengthType[1])
}

// frameInfo is what the driver learns from the first bytes of a frame.
type frameInfo struct {
	next   uint16
	length uint16 // frame length including header and CRC
	status uint16
}

func (fi frameInfo) payloadLen() int { return int(fi.length) - wireExtra }

// Receive copies the oldest pending frame's header into hdr and its payload
// into payload, returning the payload length. The payload may include the
// MAC's zero padding. When payload is too short ErrBufferTooSmall is returned
// and the frame stays pending.
func (d *Device) Receive(hdr *Header, payload []byte) (int, error) {
	if hdr == nil || payload == nil {
		return 0, ErrInvalidArgument
	}
	if !d.configured {
		return 0, ErrNotConfigured
	}
	fi, err := d.openFrame()
	if err != nil {
		return 0, err
	}
	n := fi.payloadLen()
	if len(payload) < n {
		d.dbgRxTooSmall()
		return 0, ErrBufferTooSmall
	}
	var h [headerLen]byte
	if err := d.ReadWindow(RxWindow, h[:]); err != nil {
		return 0, err
	}
	copy(hdr.Destination[:], h[0:6])
	copy(hdr.Source[:], h[6:12])
	copy(hdr.LengthType[:], h[12:14])
	hdr.Status = fi.status
	if err := d.ReadWindow(RxWindow, payload[:n]); err != nil {
		return 0, err
	}
	if err := d.release(fi.next); err != nil {
		return 0, err
	}
	d.dbgRxFrame(n)
	d.debug("receive", slog.Int("len", n), attrU16("next", fi.next))
	return n, nil
}

// ReadFrame copies the oldest pending frame, header included and CRC
// excluded, into buf and returns its length.
func (d *Device) ReadFrame(buf []byte) (int, error) {
	if buf == nil {
		return 0, ErrInvalidArgument
	}
	if !d.configured {
		return 0, ErrNotConfigured
	}
	fi, err := d.openFrame()
	if err != nil {
		return 0, err
	}
	n := headerLen + fi.payloadLen()
	if len(buf) < n {
		d.dbgRxTooSmall()
		return 0, ErrBufferTooSmall
	}
	if err := d.ReadWindow(RxWindow, buf[:n]); err != nil {
		return 0, err
	}
	if err := d.release(fi.next); err != nil {
		return 0, err
	}
	d.dbgRxFrame(n - headerLen)
	return n, nil
}

// DropFrame discards the oldest pending frame without reading it.
func (d *Device) DropFrame() error {
	if !d.configured {
		return ErrNotConfigured
	}
	fi, err := d.openFrame()
	if err != nil {
		return err
	}
	d.dbgRxDropped()
	return d.release(fi.next)
}

// openFrame points the RX window at the oldest pending frame and reads its
// next pointer and status vector. Driver state is left untouched.
func (d *Device) openFrame() (frameInfo, error) {
	if err := d.settleRelease(); err != nil {
		return frameInfo{}, err
	}
	st, err := d.ReadRegister(ESTAT)
	if err != nil {
		return frameInfo{}, err
	}
	if st&ESTAT_PKTCNT == 0 {
		return frameInfo{}, ErrNoPendingFrame
	}
	if err := d.WritePointer(RxRead, d.nextFrame); err != nil {
		return frameInfo{}, err
	}
	var b [2 + rsvLen]byte
	if err := d.ReadWindow(RxWindow, b[:]); err != nil {
		return frameInfo{}, err
	}
	fi := frameInfo{
		next:   uint16(b[0]) | uint16(b[1])<<8,
		length: uint16(b[2]) | uint16(b[3])<<8,
		status: uint16(b[4]) | uint16(b[5])<<8,
	}
	if fi.length < wireExtra || !validFramePointer(fi.next) {
		d.debug("bad rsv", attrU16("next", fi.next), attrU16("len", fi.length))
		return frameInfo{}, ErrMalformedFrame
	}
	return fi, nil
}

// release commits a consumed frame. The tail frees the ring up to next and
// only then does the driver move on. A failed PKTCNT decrement is kept
// pending and retried before the counter is next read, so the frame is
// still delivered.
func (d *Device) release(next uint16) error {
	if err := d.WriteRegister(ERXTAIL, tailFor(next)); err != nil {
		return err
	}
	d.nextFrame = next
	d.decPending = true
	if err := d.settleRelease(); err != nil {
		d.debug("packet decrement deferred", slog.String("err", err.Error()))
	}
	return nil
}

// settleRelease issues a packet decrement left over from release.
func (d *Device) settleRelease() error {
	if !d.decPending {
		return nil
	}
	if err := d.execute(opSETPKTDEC); err != nil {
		return err
	}
	d.decPending = false
	return nil
}

// PendingFrame reports whether at least one received frame is waiting.
func (d *Device) PendingFrame() (bool, error) {
	if err := d.settleRelease(); err != nil {
		return false, err
	}
	st, err := d.ReadRegister(ESTAT)
	if err != nil {
		return false, err
	}
	return st&ESTAT_PKTCNT != 0, nil
}

// PendingCount returns the chip's received frame counter.
func (d *Device) PendingCount() (int, error) {
	if err := d.settleRelease(); err != nil {
		return 0, err
	}
	st, err := d.ReadRegister(ESTAT)
	if err != nil {
		return 0, err
	}
	return int(st & ESTAT_PKTCNT), nil
}

// RxRingFree returns the free bytes in the receive ring.
func (d *Device) RxRingFree() (uint16, error) {
	head, err := d.ReadRegister(ERXHEAD)
	if err != nil {
		return 0, err
	}
	tail, err := d.ReadRegister(ERXTAIL)
	if err != nil {
		return 0, err
	}
	return ringSize - 2 - ringUsed(head, tail), nil
}
