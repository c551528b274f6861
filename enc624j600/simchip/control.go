// enc624j600/simchip/control.go

package simchip

// Fault injection and inspection. All methods are safe to call while a
// driver is using the chip from another goroutine.

// SetClockReady controls ESTAT.CLKRDY.
func (c *Chip) SetClockReady(ready bool) {
	c.mu.Lock()
	c.clockReady = ready
	c.mu.Unlock()
}

// SetLink changes the link state and latches EIR.LINKIF on a change.
func (c *Chip) SetLink(up bool) {
	c.mu.Lock()
	changed := c.link != up
	c.link = up
	if changed {
		c.put(regEIR, c.get(regEIR)|eirLINKIF)
	}
	fire := c.updateIntLocked()
	irq := c.OnIRQ
	c.mu.Unlock()
	if fire && irq != nil {
		irq()
	}
}

// SetFullDuplex sets the duplex the PHY reports through ESTAT.PHYDPX.
func (c *Chip) SetFullDuplex(full bool) {
	c.mu.Lock()
	c.fullDuplex = full
	c.mu.Unlock()
}

// Deafen makes the next n chip-select scopes ignore MOSI and drive zeros,
// as a chip still in power-on reset does.
func (c *Chip) Deafen(n int) {
	c.mu.Lock()
	c.deaf = n
	c.mu.Unlock()
}

// FailTransmit makes subsequent transmissions report status in ETXSTAT and
// an ETXWIRE count skewed by wireSkew bytes. FailTransmit(0, 0) restores
// clean transmissions.
func (c *Chip) FailTransmit(status uint16, wireSkew int) {
	c.mu.Lock()
	c.txFail = status
	c.wireSkew = wireSkew
	c.mu.Unlock()
}

// Register returns the 16-bit value of the SFR at addr as the chip holds it.
func (c *Chip) Register(addr uint8) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch addr {
	case regESTAT:
		return c.estat()
	case regEIR:
		return c.eir()
	}
	return c.get(addr &^ 1)
}

// SetRegister overwrites an SFR without side effects.
func (c *Chip) SetRegister(addr uint8, v uint16) {
	c.mu.Lock()
	c.put(addr&^1, v)
	c.mu.Unlock()
}

// PHY returns a PHY register.
func (c *Chip) PHY(addr uint8) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phyRead(addr & 0x1F)
}

// Pointer returns one of the buffer pointers (GPRead, GPWrite, ...).
func (c *Chip) Pointer(i int) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ptr[i]
}

// SRAM copies n bytes of buffer memory starting at addr.
func (c *Chip) SRAM(addr uint16, n int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = c.sram[(int(addr)+i)%sramSize]
	}
	return out
}

// Pending returns the receive packet counter.
func (c *Chip) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pktcnt
}

// Transmitted returns every frame transmitted so far, loopback included.
func (c *Chip) Transmitted() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	for i, f := range c.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Writes returns the register write log.
func (c *Chip) Writes() []Write {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Write(nil), c.writes...)
}

// ClearLog forgets recorded writes and transmitted frames.
func (c *Chip) ClearLog() {
	c.mu.Lock()
	c.writes = nil
	c.sent = nil
	c.mu.Unlock()
}

// Delayed returns the total platform delay requested, in microseconds.
func (c *Chip) Delayed() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delayUS
}

// Scopes returns the number of completed chip-select scopes.
func (c *Chip) Scopes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scopes
}

// CriticalDepth returns the current critical section nesting.
func (c *Chip) CriticalDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

// Interrupts returns how many times INT has been asserted.
func (c *Chip) Interrupts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Connect wires two chips back to back: each one's transmissions arrive at
// the other's receiver.
func Connect(a, b *Chip) {
	a.OnTransmit = func(f []byte) { b.Inject(f) }
	b.OnTransmit = func(f []byte) { a.Inject(f) }
}
