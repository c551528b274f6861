// enc624j600/simchip/simchip.go

// Package simchip models an ENC624J600 at the SPI byte level so the driver
// can run on a host. A Chip is the SPI bus, the chip-select pin and the
// platform all at once; it tracks delays and critical sections so tests can
// check how the driver used them.
//
// The model covers the unbanked instruction set, the three SRAM windows,
// the MII management interface, transmit with source address insertion and
// padding, and a receive ring with the chip's frame layout. DMA, banked
// access, crypto and pattern matching are not modelled.
package simchip

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sync"

	"tinygo.org/x/drivers"
)

var _ drivers.SPI = (*Chip)(nil)

// ErrNotSelected is returned by Tx and Transfer outside a chip-select scope.
var ErrNotSelected = errors.New("simchip: transfer with chip select high")

// DefaultMAC is the factory station address the model reports.
var DefaultMAC = [6]byte{0xD8, 0x80, 0x39, 0x7A, 0x46, 0x1A}

// Write records one completed register write.
type Write struct {
	Op       byte   // instruction that performed the write
	Reg      uint8  // register address (even)
	Value    uint16 // register value after the write
	Critical bool   // the write happened inside a critical section
}

// Chip is a simulated ENC624J600.
type Chip struct {
	// TxBusyReads is the number of ECON1 reads that still see TXRTS set
	// after a transmit is started.
	TxBusyReads int
	// PHYBusyReads is the number of MISTAT reads that see BUSY after an MII
	// operation.
	PHYBusyReads int
	// OnTransmit receives every frame put on the wire, without CRC. It runs
	// outside the chip lock so it may inject into another Chip.
	OnTransmit func(frame []byte)
	// OnIRQ runs on each assertion of the INT pin.
	OnIRQ func()

	mu sync.Mutex

	regs [0x80]byte
	sram [sramSize]byte
	ptr  [numPtrs]uint16
	phy  [32]uint16

	factory    [6]byte
	clockReady bool
	link       bool
	fullDuplex bool
	pktcnt     int

	phyBusy  int
	txActive bool
	txReads  int
	txFail   uint16
	wireSkew int

	// chip-select scope
	selected bool
	dead     bool
	deaf     int
	pos      int
	op       byte
	addr     byte

	depth   int
	delayUS uint64
	scopes  int
	writes  []Write
	sent    [][]byte
	outbox  [][]byte
	intLine bool
	fired   int
}

// New returns a powered-up chip with the given factory address, clock
// ready, link up and full duplex negotiated.
func New(mac [6]byte) *Chip {
	c := &Chip{
		factory:    mac,
		clockReady: true,
		link:       true,
		fullDuplex: true,
	}
	c.resetLocked()
	return c
}

// CS returns the chip-select pin.
func (c *Chip) CS() Pin { return Pin{c} }

// Pin is the chip-select line of a Chip.
type Pin struct{ c *Chip }

func (p Pin) Low() {
	c := p.c
	c.mu.Lock()
	c.selected = true
	c.pos = 0
	c.dead = c.deaf > 0
	if c.dead {
		c.deaf--
	}
	c.mu.Unlock()
}

func (p Pin) High() {
	c := p.c
	c.mu.Lock()
	if c.selected {
		c.scopes++
	}
	c.selected = false
	c.mu.Unlock()
}

// Tx shifts w out and fills r, one byte at a time. Either may be nil.
func (c *Chip) Tx(w, r []byte) error {
	n := max(len(w), len(r))
	c.mu.Lock()
	if !c.selected {
		c.mu.Unlock()
		return ErrNotSelected
	}
	for i := 0; i < n; i++ {
		var b byte
		if i < len(w) {
			b = w[i]
		}
		out := c.shift(b)
		if i < len(r) {
			r[i] = out
		}
	}
	c.mu.Unlock()
	c.flush()
	return nil
}

// Transfer shifts a single byte.
func (c *Chip) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := c.Tx([]byte{b}, r[:])
	return r[0], err
}

// flush delivers transmitted frames and raises INT outside the lock.
func (c *Chip) flush() {
	c.mu.Lock()
	out := c.outbox
	c.outbox = nil
	fire := c.updateIntLocked()
	cb, irq := c.OnTransmit, c.OnIRQ
	c.mu.Unlock()
	if cb != nil {
		for _, f := range out {
			cb(f)
		}
	}
	if fire && irq != nil {
		irq()
	}
}

// DelayMicroseconds implements the platform delay by accounting only.
func (c *Chip) DelayMicroseconds(us uint32) {
	c.mu.Lock()
	c.delayUS += uint64(us)
	c.mu.Unlock()
}

func (c *Chip) EnterCritical() {
	c.mu.Lock()
	c.depth++
	c.mu.Unlock()
}

func (c *Chip) ExitCritical() {
	c.mu.Lock()
	c.depth--
	if c.depth < 0 {
		panic("simchip: ExitCritical without EnterCritical")
	}
	c.mu.Unlock()
}

// resetLocked applies the system reset values.
func (c *Chip) resetLocked() {
	c.regs = [0x80]byte{}
	c.put(regERXST, 0x5340)
	c.put(regERXTAIL, 0x5FFE)
	c.put(regERXHEAD, 0x5340)
	c.put(regEUDAND, 0x5FFF)
	c.put(regERXFCON, 0x0059)
	c.put(regMACON1, 0x000D)
	c.put(regMACON2, 0x40B2)
	c.put(regMABBIPG, 0x0012)
	c.put(regMAIPG, 0x0C12)
	c.put(regMACLCON, 0x370F)
	c.put(regMAMXFL, 0x05EE)
	c.put(regECON2, 0xCB00)
	c.put(regERXWM, 0x100F)
	c.put(regEIE, 0x8010)
	c.put(regEIDLED, 0x6122)
	c.put(regMAADR1, uint16(c.factory[0])|uint16(c.factory[1])<<8)
	c.put(regMAADR2, uint16(c.factory[2])|uint16(c.factory[3])<<8)
	c.put(regMAADR3, uint16(c.factory[4])|uint16(c.factory[5])<<8)
	c.ptr = [numPtrs]uint16{}
	c.phy = [32]uint16{}
	c.phy[phyPHCON1] = 0x1000
	c.phy[phyPHSTAT1] = 0x7809
	c.phy[phyPHANA] = 0x05E1
	c.pktcnt = 0
	c.phyBusy = 0
	c.txActive = false
	c.intLine = false
}

func (c *Chip) get(a uint8) uint16    { return uint16(c.regs[a]) | uint16(c.regs[a+1])<<8 }
func (c *Chip) put(a uint8, v uint16) { c.regs[a], c.regs[a+1] = byte(v), byte(v>>8) }

// shift processes one byte of the current scope and returns the byte the
// chip drives back on SDO.
func (c *Chip) shift(b byte) byte {
	pos := c.pos
	c.pos++
	if c.dead {
		return 0
	}
	if pos == 0 {
		c.op = b
		if isSingleByte(b) {
			c.single(b)
		}
		return 0
	}
	op := c.op
	switch {
	case op >= opRCRU && op <= opBFCU:
		if pos == 1 {
			c.addr = b
			return 0
		}
		a := c.addr + byte(pos-2)
		if a >= byte(len(c.regs)) {
			return 0
		}
		switch op {
		case opRCRU:
			return c.readReg(a)
		case opWCRU:
			c.writeReg(op, a, b)
		case opBFSU:
			if bitFieldCapable(a) {
				c.writeReg(op, a, c.regs[a]|b)
			}
		case opBFCU:
			if bitFieldCapable(a) {
				c.writeReg(op, a, c.regs[a]&^b)
			}
		}
	case op >= opRGPDATA && op <= opWUDADATA:
		return c.window(op, b)
	case op >= opPtrFirst && op <= opPtrLast:
		if pos > 2 {
			return 0
		}
		i, write := pointerIndex(op)
		shiftBits := 8 * uint(pos-1)
		if write {
			c.ptr[i] = c.ptr[i]&^(0xFF<<shiftBits) | uint16(b)<<shiftBits
			return 0
		}
		return byte(c.ptr[i] >> shiftBits)
	}
	return 0
}

func (c *Chip) single(op byte) {
	switch op {
	case opSETETHRST:
		c.resetLocked()
	case opSETPKTDEC:
		if c.pktcnt > 0 {
			c.pktcnt--
		}
	case opSETTXRTS:
		c.put(regECON1, c.get(regECON1)|econ1TXRTS)
		c.startTransmit()
	case opENABLERX:
		c.put(regECON1, c.get(regECON1)|econ1RXEN)
	case opDISABLERX:
		c.put(regECON1, c.get(regECON1)&^econ1RXEN)
	case opSETEIE:
		c.put(regEIE, c.get(regEIE)|eieINTIE)
	case opCLREIE:
		c.put(regEIE, c.get(regEIE)&^eieINTIE)
	}
}

func (c *Chip) readReg(a byte) byte {
	switch a &^ 1 {
	case regESTAT:
		return byte(c.estat() >> (8 * (a & 1)))
	case regEIR:
		return byte(c.eir() >> (8 * (a & 1)))
	case regECON1:
		if a == regECON1 && c.txActive {
			c.txReads++
			if c.txReads > c.TxBusyReads {
				c.finishTransmit()
			}
		}
	case regMISTAT:
		if a == regMISTAT {
			if c.phyBusy > 0 {
				c.phyBusy--
				return mistatBUSY
			}
			return 0
		}
	}
	return c.regs[a]
}

func (c *Chip) writeReg(op byte, a, b byte) {
	switch a &^ 1 {
	case regESTAT, regMISTAT, regMIRD:
		return // read only
	}
	c.regs[a] = b
	if a&1 == 0 {
		return
	}
	// A register takes effect once its high byte is written.
	w := a &^ 1
	v := c.get(w)
	c.writes = append(c.writes, Write{Op: op, Reg: w, Value: v, Critical: c.depth > 0})
	switch w {
	case regERXST:
		c.put(regERXHEAD, v)
	case regMICMD:
		if v&micmdMIIRD != 0 {
			r := c.get(regMIREGADR) & 0x1F
			c.put(regMIRD, c.phyRead(uint8(r)))
			c.phyBusy = c.PHYBusyReads
		}
	case regMIWR:
		r := c.get(regMIREGADR) & 0x1F
		c.phyWrite(uint8(r), v)
		c.phyBusy = c.PHYBusyReads
	case regECON1:
		if v&econ1TXRTS != 0 && !c.txActive {
			c.startTransmit()
		}
		if v&econ1PKTDEC != 0 {
			if c.pktcnt > 0 {
				c.pktcnt--
			}
			c.put(regECON1, v&^econ1PKTDEC)
		}
	}
}

func (c *Chip) estat() uint16 {
	v := uint16(c.pktcnt) & estatPKTCNT
	if c.link {
		v |= estatPHYLNK
	}
	if c.fullDuplex {
		v |= estatPHYDPX
	}
	if c.clockReady {
		v |= estatCLKRDY
	}
	if c.intLine {
		v |= estatINT
	}
	return v
}

func (c *Chip) eir() uint16 {
	v := c.get(regEIR) &^ eirPKTIF
	if c.pktcnt > 0 {
		v |= eirPKTIF
	}
	return v
}

func (c *Chip) updateIntLocked() bool {
	eie := c.get(regEIE)
	pending := eie&eieINTIE != 0 && c.eir()&eie&^eieINTIE != 0
	rising := pending && !c.intLine
	c.intLine = pending
	if rising {
		c.fired++
	}
	return rising
}

func (c *Chip) window(op, b byte) byte {
	var i int
	switch op {
	case opRGPDATA:
		i = ptrGPRD
	case opWGPDATA:
		i = ptrGPWR
	case opRRXDATA:
		i = ptrRXRD
	case opWRXDATA:
		i = ptrRXWR
	case opRUDADATA:
		i = ptrUDARD
	case opWUDADATA:
		i = ptrUDAWR
	default:
		return 0
	}
	p := c.ptr[i] % sramSize
	var out byte
	if op&0x02 == 0 {
		out = c.sram[p]
	} else {
		c.sram[p] = b
	}
	c.ptr[i] = c.advance(i, p)
	return out
}

// advance moves a window pointer one byte, wrapping per buffer.
func (c *Chip) advance(i int, p uint16) uint16 {
	rxst := c.get(regERXST)
	switch i {
	case ptrGPRD, ptrGPWR:
		p++
		if p == rxst {
			p = 0
		}
	case ptrRXRD, ptrRXWR:
		p++
		if p >= sramSize {
			p = rxst
		}
	default:
		if p == c.get(regEUDAND) {
			return c.get(regEUDAST)
		}
		p++
	}
	return p
}

func (c *Chip) phyRead(r uint8) uint16 {
	v := c.phy[r]
	if r == phyPHSTAT1 {
		v &^= phstat1LLSTAT
		if c.link {
			v |= phstat1LLSTAT | phstat1ANDONE
		}
	}
	return v
}

func (c *Chip) phyWrite(r uint8, v uint16) {
	if r == phyPHCON1 && v&phcon1PRST != 0 {
		c.phy[phyPHCON1] = 0x1000
		c.phy[phyPHANA] = 0x05E1
		return
	}
	c.phy[r] = v
}

func (c *Chip) startTransmit() {
	start := c.get(regETXST)
	n := int(c.get(regETXLEN))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = c.sram[(int(start)+i)%sramSize]
	}
	var frame []byte
	if c.get(regECON2)&econ2TXMAC != 0 && n >= 6 {
		frame = make([]byte, 0, n+6)
		frame = append(frame, buf[:6]...)
		frame = append(frame, c.stationAddr()...)
		frame = append(frame, buf[6:]...)
	} else {
		frame = buf
	}
	if c.get(regMACON2)&macon2PADCFG != 0 && len(frame) < 60 {
		frame = append(frame, make([]byte, 60-len(frame))...)
	}
	wire := len(frame) + 4 + c.wireSkew
	c.put(regETXWIRE, uint16(wire))
	c.put(regETXSTAT, c.txFail)
	c.txActive = true
	c.txReads = 0
	c.sent = append(c.sent, frame)
	if c.get(regMACON1)&macon1LOOPBK != 0 || c.phy[phyPHCON1]&phcon1PLOOPBK != 0 {
		c.injectLocked(frame)
		return
	}
	c.outbox = append(c.outbox, frame)
}

func (c *Chip) finishTransmit() {
	c.txActive = false
	c.put(regECON1, c.get(regECON1)&^econ1TXRTS)
	flag := uint16(eirTXIF)
	if c.txFail&(etxstatMAXCOL|etxstatLATECOL|etxstatEXDEFER) != 0 {
		flag = eirTXABTIF
	}
	c.put(regEIR, c.get(regEIR)|flag)
}

func (c *Chip) stationAddr() []byte {
	var mac [6]byte
	binary.LittleEndian.PutUint16(mac[0:], c.get(regMAADR1))
	binary.LittleEndian.PutUint16(mac[2:], c.get(regMAADR2))
	binary.LittleEndian.PutUint16(mac[4:], c.get(regMAADR3))
	return mac[:]
}

// Inject delivers a frame (header and payload, no CRC) to the receiver as if
// it arrived on the wire. It reports whether the frame was stored.
func (c *Chip) Inject(frame []byte) bool {
	c.mu.Lock()
	ok := c.injectLocked(frame)
	fire := c.updateIntLocked()
	irq := c.OnIRQ
	c.mu.Unlock()
	if fire && irq != nil {
		irq()
	}
	return ok
}

func (c *Chip) injectLocked(frame []byte) bool {
	if c.get(regECON1)&econ1RXEN == 0 || len(frame) < 14 {
		return false
	}
	status, ok := c.accept(frame)
	if !ok {
		return false
	}
	rxst := c.get(regERXST)
	ringLen := int(sramSize) - int(rxst)
	head := int(c.get(regERXHEAD))
	tail := int(c.get(regERXTAIL))
	total := 2 + 6 + len(frame) + 4
	total += total & 1
	free := tail - head
	if free <= 0 {
		free += ringLen
	}
	if total >= free || c.pktcnt == 255 {
		c.put(regEIR, c.get(regEIR)|eirRXABTIF)
		return false
	}
	next := head + total
	if next >= sramSize {
		next -= ringLen
	}
	var rec []byte
	rec = binary.LittleEndian.AppendUint16(rec, uint16(next))
	rec = binary.LittleEndian.AppendUint16(rec, uint16(len(frame)+4))
	rec = binary.LittleEndian.AppendUint16(rec, status)
	rec = append(rec, 0, 0)
	rec = append(rec, frame...)
	rec = binary.LittleEndian.AppendUint32(rec, crc32.ChecksumIEEE(frame))
	p := head
	for _, b := range rec {
		c.sram[p] = b
		p++
		if p >= sramSize {
			p = int(rxst)
		}
	}
	c.put(regERXHEAD, uint16(next))
	c.pktcnt++
	if c.pktcnt == 255 {
		c.put(regEIR, c.get(regEIR)|eirPCFULIF)
	}
	return true
}

// accept applies the receive filters and returns the RSV status word.
func (c *Chip) accept(frame []byte) (uint16, bool) {
	f := c.get(regERXFCON)
	dst := frame[:6]
	status := uint16(rsvRXOK)
	bcast := isBroadcast(dst)
	mcast := dst[0]&1 != 0 && !bcast
	me := string(dst) == string(c.stationAddr())
	if len(frame)+4 < 64 && f&(erxfconRUNTEN) != 0 && f&erxfconRUNTEEN == 0 {
		return 0, false
	}
	switch {
	case bcast:
		status |= rsvBROADCAST
		return status, f&erxfconBCEN != 0
	case mcast:
		status |= rsvMULTICAST
		return status, f&erxfconMCEN != 0
	case me:
		return status, f&erxfconUCEN != 0
	default:
		return status, f&erxfconNOTMEEN != 0
	}
}

func isBroadcast(mac []byte) bool {
	for _, b := range mac {
		if b != 0xFF {
			return false
		}
	}
	return true
}
