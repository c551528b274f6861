// enc624j600/access.go

package enc624j600

import "fmt"

// chunkSize bounds a single window transaction. The chip's window cursor
// carries over between transactions so a long stream is split freely.
const chunkSize = 64

// transact clocks n bytes of d.tx out and n bytes into d.rx inside one
// chip-select scope.
func (d *Device) transact(n int) error {
	d.cs.Low()
	err := d.bus.Tx(d.tx[:n], d.rx[:n])
	d.cs.High()
	d.dbgTransaction(n)
	return err
}

func busError(what string, addr uint8, err error) error {
	return fmt.Errorf("enc624j600: %s 0x%02x: %w", what, addr, err)
}

// execute issues a single-byte instruction.
func (d *Device) execute(op opcode) error {
	d.tx[0] = byte(op)
	if err := d.transact(1); err != nil {
		return busError("instruction", uint8(op), err)
	}
	return nil
}

// ReadRegister reads a 16-bit SFR.
func (d *Device) ReadRegister(r Register) (uint16, error) {
	d.tx[0], d.tx[1], d.tx[2], d.tx[3] = byte(opRCRU), byte(r), 0, 0
	if err := d.transact(4); err != nil {
		return 0, busError("read register", uint8(r), err)
	}
	return uint16(d.rx[2]) | uint16(d.rx[3])<<8, nil
}

// WriteRegister writes a 16-bit SFR.
func (d *Device) WriteRegister(r Register, v uint16) error {
	return d.registerOp(opWCRU, r, v)
}

func (d *Device) registerOp(op opcode, r Register, v uint16) error {
	d.tx[0], d.tx[1], d.tx[2], d.tx[3] = byte(op), byte(r), byte(v), byte(v>>8)
	if err := d.transact(4); err != nil {
		return busError("write register", uint8(r), err)
	}
	return nil
}

// SetBits sets mask in r.
func (d *Device) SetBits(r Register, mask uint16) error { return d.modify(r, 0, mask) }

// ClearBits clears mask in r.
func (d *Device) ClearBits(r Register, mask uint16) error { return d.modify(r, mask, 0) }

// modify clears then sets bits. MAC and MII registers ignore BFSU/BFCU and
// are updated by read-modify-write with interrupts masked.
func (d *Device) modify(r Register, off, on uint16) error {
	if r.bitFieldCapable() {
		if off != 0 {
			if err := d.registerOp(opBFCU, r, off); err != nil {
				return err
			}
		}
		if on != 0 {
			return d.registerOp(opBFSU, r, on)
		}
		return nil
	}
	defer d.critical()()
	v, err := d.ReadRegister(r)
	if err != nil {
		return err
	}
	return d.WriteRegister(r, v&^off|on)
}

// ReadPointer reads one of the SRAM buffer pointers.
func (d *Device) ReadPointer(p Pointer) (uint16, error) {
	if !p.valid() {
		return 0, ErrInvalidArgument
	}
	d.tx[0], d.tx[1], d.tx[2] = byte(p.readOp()), 0, 0
	if err := d.transact(3); err != nil {
		return 0, busError("read pointer", uint8(p.readOp()), err)
	}
	return uint16(d.rx[1]) | uint16(d.rx[2])<<8, nil
}

// WritePointer sets one of the SRAM buffer pointers.
func (d *Device) WritePointer(p Pointer, v uint16) error {
	if !p.valid() {
		return ErrInvalidArgument
	}
	d.tx[0], d.tx[1], d.tx[2] = byte(p.writeOp()), byte(v), byte(v>>8)
	if err := d.transact(3); err != nil {
		return busError("write pointer", uint8(p.writeOp()), err)
	}
	return nil
}

// ReadWindow fills buf from the window's read pointer, which advances.
func (d *Device) ReadWindow(w Window, buf []byte) error {
	if !w.valid() {
		return ErrInvalidArgument
	}
	op := w.readOp()
	for len(buf) > 0 {
		n := min(len(buf), chunkSize)
		d.tx[0] = byte(op)
		clear(d.tx[1 : 1+n])
		if err := d.transact(1 + n); err != nil {
			return busError("read window", uint8(op), err)
		}
		copy(buf, d.rx[1:1+n])
		buf = buf[n:]
		d.dbgWindowRead(n)
	}
	return nil
}

// WriteWindow streams buf through the window's write pointer, which advances.
func (d *Device) WriteWindow(w Window, buf []byte) error {
	if !w.valid() {
		return ErrInvalidArgument
	}
	op := w.writeOp()
	for len(buf) > 0 {
		d.tx[0] = byte(op)
		n := copy(d.tx[1:], buf)
		if err := d.transact(1 + n); err != nil {
			return busError("write window", uint8(op), err)
		}
		buf = buf[n:]
		d.dbgWindowWrite(n)
	}
	return nil
}

// ReadPHY reads a PHY register through the MII management interface.
func (d *Device) ReadPHY(r PHYRegister) (uint16, error) {
	if err := d.WriteRegister(MIREGADR, miiRegAddrPHY|uint16(r)); err != nil {
		return 0, err
	}
	if err := d.WriteRegister(MICMD, MICMD_MIIRD); err != nil {
		return 0, err
	}
	if err := d.miiWait(); err != nil {
		return 0, err
	}
	if err := d.WriteRegister(MICMD, 0); err != nil {
		return 0, err
	}
	return d.ReadRegister(MIRD)
}

// WritePHY writes a PHY register through the MII management interface.
func (d *Device) WritePHY(r PHYRegister, v uint16) error {
	if err := d.WriteRegister(MIREGADR, miiRegAddrPHY|uint16(r)); err != nil {
		return err
	}
	if err := d.WriteRegister(MIWR, v); err != nil {
		return err
	}
	return d.miiWait()
}

func (d *Device) miiWait() error {
	d.plat.DelayMicroseconds(miiSettleDelay)
	return d.wait(StagePHYBusy, func() (bool, error) {
		v, err := d.ReadRegister(MISTAT)
		return v&MISTAT_BUSY == 0, err
	})
}

// modifyPHY clears then sets bits in a PHY register.
func (d *Device) modifyPHY(r PHYRegister, off, on uint16) error {
	v, err := d.ReadPHY(r)
	if err != nil {
		return err
	}
	return d.WritePHY(r, v&^off|on)
}
