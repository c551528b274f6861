package simchip

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// xfer runs one chip-select scope.
func xfer(t *testing.T, c *Chip, w ...byte) []byte {
	t.Helper()
	r := make([]byte, len(w))
	cs := c.CS()
	cs.Low()
	if err := c.Tx(w, r); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	cs.High()
	return r
}

func readReg(t *testing.T, c *Chip, a byte) uint16 {
	r := xfer(t, c, opRCRU, a, 0, 0)
	return uint16(r[2]) | uint16(r[3])<<8
}

func writeReg(t *testing.T, c *Chip, a byte, v uint16) {
	xfer(t, c, opWCRU, a, byte(v), byte(v>>8))
}

func TestTxRequiresChipSelect(t *testing.T) {
	c := New(DefaultMAC)
	if err := c.Tx([]byte{opRCRU, 0, 0, 0}, nil); err != ErrNotSelected {
		t.Fatalf("got %v want ErrNotSelected", err)
	}
}

func TestRegisterReadWrite(t *testing.T) {
	c := New(DefaultMAC)
	writeReg(t, c, regEUDAST, 0x1234)
	if got := readReg(t, c, regEUDAST); got != 0x1234 {
		t.Fatalf("EUDAST got %#04x want 0x1234", got)
	}
	xfer(t, c, opSETETHRST)
	if got := readReg(t, c, regEUDAST); got != 0 {
		t.Fatalf("EUDAST after reset got %#04x want 0", got)
	}
	if got := readReg(t, c, regMAADR1); got != 0x80D8 {
		t.Fatalf("MAADR1 got %#04x want 0x80d8", got)
	}
}

func TestBitFieldIgnoredOnMACRegisters(t *testing.T) {
	c := New(DefaultMAC)
	before := readReg(t, c, regMACON2)
	xfer(t, c, opBFSU, regMACON2, 0x01, 0x00)
	if got := readReg(t, c, regMACON2); got != before {
		t.Fatalf("MACON2 got %#04x want %#04x", got, before)
	}
	xfer(t, c, opBFSU, regECON2, 0x80, 0x00)
	if got := readReg(t, c, regECON2); got&0x0080 == 0 {
		t.Fatalf("ECON2 AUTOFC not set: %#04x", got)
	}
}

func TestDeafScopes(t *testing.T) {
	c := New(DefaultMAC)
	c.Deafen(2)
	writeReg(t, c, regEUDAST, 0x1234)
	if got := readReg(t, c, regEUDAST); got != 0 {
		t.Fatalf("deaf read got %#04x want 0", got)
	}
	writeReg(t, c, regEUDAST, 0x1234)
	if got := readReg(t, c, regEUDAST); got != 0x1234 {
		t.Fatalf("got %#04x want 0x1234", got)
	}
}

func TestGPWindowWrapsAtRxStart(t *testing.T) {
	c := New(DefaultMAC)
	writeReg(t, c, regERXST, 0x2000)
	xfer(t, c, 0x6C, 0xFE, 0x1F) // WGPWRPT 0x1FFE
	xfer(t, c, opWGPDATA, 1, 2, 3, 4)
	if got := c.Pointer(GPWrite); got != 0x0002 {
		t.Fatalf("EGPWRPT got %#04x want 0x0002", got)
	}
	if diff := cmp.Diff([]byte{1, 2}, c.SRAM(0x1FFE, 2)); diff != "" {
		t.Fatalf("tail bytes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{3, 4}, c.SRAM(0, 2)); diff != "" {
		t.Fatalf("wrapped bytes (-want +got):\n%s", diff)
	}
}

func TestPHYReadThroughMII(t *testing.T) {
	c := New(DefaultMAC)
	c.PHYBusyReads = 3
	writeReg(t, c, regMIREGADR, 0x0100|phyPHANA)
	writeReg(t, c, regMICMD, micmdMIIRD)
	busy := 0
	for readReg(t, c, regMISTAT)&mistatBUSY != 0 {
		busy++
	}
	if busy != 3 {
		t.Fatalf("busy reads got %d want 3", busy)
	}
	if got := readReg(t, c, regMIRD); got != 0x05E1 {
		t.Fatalf("PHANA got %#04x want 0x05e1", got)
	}
}

func TestInjectLayout(t *testing.T) {
	c := New(DefaultMAC)
	writeReg(t, c, regERXST, 0x2000)
	xfer(t, c, opENABLERX)
	frame := make([]byte, 60)
	copy(frame, DefaultMAC[:])
	copy(frame[6:], []byte{2, 0, 0, 0, 0, 1})
	frame[12], frame[13] = 0x08, 0x00
	for i := 14; i < len(frame); i++ {
		frame[i] = byte(i)
	}
	if !c.Inject(frame) {
		t.Fatal("frame rejected")
	}
	rec := c.SRAM(0x2000, 8+len(frame)+4)
	next := binary.LittleEndian.Uint16(rec[0:])
	if want := uint16(0x2000 + 8 + 60 + 4); next != want {
		t.Fatalf("next got %#04x want %#04x", next, want)
	}
	if got := binary.LittleEndian.Uint16(rec[2:]); got != 64 {
		t.Fatalf("rsv length got %d want 64", got)
	}
	if rec[4]&0x80 == 0 {
		t.Fatal("RXOK not set")
	}
	if !bytes.Equal(rec[8:8+60], frame) {
		t.Fatal("frame bytes differ")
	}
	if c.Pending() != 1 || c.Register(regESTAT)&estatPKTCNT != 1 {
		t.Fatalf("pktcnt got %d", c.Pending())
	}
	xfer(t, c, opSETPKTDEC)
	if c.Pending() != 0 {
		t.Fatalf("pktcnt after SETPKTDEC got %d want 0", c.Pending())
	}
}

func TestInjectFilters(t *testing.T) {
	c := New(DefaultMAC)
	xfer(t, c, opENABLERX)
	frame := make([]byte, 60)
	for i := 0; i < 6; i++ {
		frame[i] = 0xFF
	}
	if !c.Inject(frame) {
		t.Fatal("broadcast rejected with BCEN set")
	}
	copy(frame, []byte{2, 9, 9, 9, 9, 9})
	if c.Inject(frame) {
		t.Fatal("foreign unicast accepted without NOTMEEN")
	}
	copy(frame, []byte{0x01, 0x00, 0x5E, 0, 0, 1})
	if c.Inject(frame) {
		t.Fatal("multicast accepted without MCEN")
	}
	if c.Inject(frame[:20]) {
		t.Fatal("runt accepted with RUNTEN set")
	}
}

func TestTransmitInsertsSourceAndPads(t *testing.T) {
	c := New(DefaultMAC)
	writeReg(t, c, regERXST, 0x2000)
	xfer(t, c, opBFSU, regECON2+1, econ2TXMAC>>8)
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	w := append([]byte{opWGPDATA}, DefaultMAC[:]...)
	w = append(w, 0x88, 0xB5)
	w = append(w, payload...)
	xfer(t, c, w...)
	writeReg(t, c, regETXST, 0)
	writeReg(t, c, regETXLEN, uint16(8+len(payload)))
	var got []byte
	c.OnTransmit = func(f []byte) { got = f }
	xfer(t, c, opSETTXRTS)
	if readReg(t, c, regECON1)&econ1TXRTS != 0 {
		t.Fatal("TXRTS still set")
	}
	if len(got) != 60 {
		t.Fatalf("frame length got %d want 60", len(got))
	}
	if diff := cmp.Diff(DefaultMAC[:], got[6:12]); diff != "" {
		t.Fatalf("source (-want +got):\n%s", diff)
	}
	if wire := readReg(t, c, regETXWIRE); wire != 64 {
		t.Fatalf("ETXWIRE got %d want 64", wire)
	}
}
