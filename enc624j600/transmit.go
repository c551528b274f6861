// enc624j600/transmit.go

package enc624j600

import "log/slog"

const (
	minPayload = 8
	maxPayload = 1500
	minPadded  = 46 // payload length the MAC pads to
	headerLen  = 14
	wireExtra  = 18 // header and CRC around the payload on the wire
)

// Transmit sends one frame and waits for the chip to finish it. The chip
// inserts the source address and CRC, and pads short payloads.
func (d *Device) Transmit(dst, lengthType, payload []byte) error {
	if len(dst) != 6 || len(lengthType) != 2 || payload == nil {
		return ErrInvalidArgument
	}
	if len(payload) < minPayload {
		return ErrFrameTooSmall
	}
	if len(payload) > maxPayload {
		return ErrFrameExceedsMTU
	}
	if !d.configured {
		return ErrNotConfigured
	}
	return d.transmit(dst, lengthType, payload)
}

// WriteFrame sends a whole frame laid out as destination, source, length or
// type, payload. The source field is ignored.
func (d *Device) WriteFrame(frame []byte) error {
	if len(frame) < headerLen {
		return ErrInvalidArgument
	}
	return d.Transmit(frame[0:6], frame[12:14], frame[headerLen:])
}

func (d *Device) transmit(dst, lengthType, payload []byte) error {
	n := uint16(len(payload))
	start, err := d.ReadPointer(GPWrite)
	if err != nil {
		return err
	}
	// The GP window wraps at ERXST and the transmit engine does not.
	if uint32(start)+uint32(8+n) > rxStart {
		start = txStart
		if err := d.WritePointer(GPWrite, start); err != nil {
			return err
		}
	}
	for _, b := range [][]byte{dst, lengthType, payload} {
		if err := d.WriteWindow(GPWindow, b); err != nil {
			return err
		}
	}
	if err := d.WriteRegister(ETXST, start); err != nil {
		return err
	}
	if err := d.WriteRegister(ETXLEN, 8+n); err != nil {
		return err
	}
	if err := d.execute(opSETTXRTS); err != nil {
		return err
	}
	err = d.wait(StageTransmit, func() (bool, error) {
		v, err := d.ReadRegister(ECON1)
		return v&ECON1_TXRTS == 0, err
	})
	if err != nil {
		return err
	}
	if err := d.checkTransmit(n); err != nil {
		d.dbgTxFailed()
		d.debug("transmit failed", attrErr(err))
		return err
	}
	d.dbgTxFrame(int(n))
	d.debug("transmit", slog.Int("len", int(n)), attrU16("etxst", start))
	return nil
}

// checkTransmit validates the completed transmission. In full duplex only
// the on-wire byte count is meaningful; in half duplex the collision and
// deferral flags are.
func (d *Device) checkTransmit(n uint16) error {
	if d.duplex == FullDuplex {
		want := wireExtra + max(n, minPadded)
		wire, err := d.ReadRegister(ETXWIRE)
		if err != nil {
			return err
		}
		if wire != want {
			return &TransmitError{Duplex: FullDuplex, Wire: wire, Want: want}
		}
		return nil
	}
	st, err := d.ReadRegister(ETXSTAT)
	if err != nil {
		return err
	}
	if st&(ETXSTAT_LATECOL|ETXSTAT_MAXCOL|ETXSTAT_EXDEFER) != 0 {
		return &TransmitError{Duplex: HalfDuplex, Status: st}
	}
	return nil
}
