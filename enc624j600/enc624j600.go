// enc624j600/enc624j600.go

// Package enc624j600 drives the Microchip ENC624J600 10/100 Ethernet
// controller over SPI. It owns register, pointer and SRAM window access, the
// reset and bring-up sequence, the receive filters, and frame transmit and
// receive through the chip's 24 KiB buffer.
//
// The driver runs in a single execution context. Only SignalIRQ may be called
// from an interrupt handler.
package enc624j600

import (
	"log/slog"
	"sync/atomic"

	"tinygo.org/x/drivers"
)

// Pin is a chip-select output. machine.Pin satisfies it.
type Pin interface {
	High()
	Low()
}

// Platform supplies the timing and interrupt masking the driver needs.
type Platform interface {
	DelayMicroseconds(us uint32)
	EnterCritical()
	ExitCritical()
}

// Duplex is the negotiated link duplex.
type Duplex uint8

const (
	HalfDuplex Duplex = iota
	FullDuplex
)

func (d Duplex) String() string {
	if d == FullDuplex {
		return "full"
	}
	return "half"
}

// Config holds bring-up options. The zero value brings the chip up with its
// factory address, auto-negotiation, polling mode and a BusyPoller.
type Config struct {
	// HardwareAddr, when non-nil, must be 6 bytes and replaces the factory
	// station address.
	HardwareAddr []byte
	// HugeFrames lets the MAC accept frames longer than MAMXFL.
	HugeFrames bool
	// MACLoopback and PHYLoopback route transmitted frames back to the
	// receiver. Either one skips the link wait.
	MACLoopback bool
	PHYLoopback bool
	// Interrupts enables the INT pin. Pump then only touches the chip after
	// SignalIRQ.
	Interrupts bool
	Poller     Poller
	Logger     *slog.Logger
}

// Device is one ENC624J600 session.
type Device struct {
	bus    drivers.SPI
	cs     Pin
	plat   Platform
	poller Poller
	log    *slog.Logger

	// SPI scratch; one transaction at a time.
	tx [1 + chunkSize]byte
	rx [1 + chunkSize]byte

	configured bool
	interrupts bool
	duplex     Duplex
	link       bool
	nextFrame  uint16
	decPending bool // PKTCNT decrement owed for a released frame
	mac        [6]byte
	irq        uint32

	stats Stats
}

// New returns a driver for the chip behind bus and cs. A nil plat selects
// DefaultPlatform.
func New(bus drivers.SPI, cs Pin, plat Platform) *Device {
	if plat == nil {
		plat = DefaultPlatform()
	}
	cs.High()
	return &Device{
		bus:    bus,
		cs:     cs,
		plat:   plat,
		poller: BusyPoller{},
	}
}

// Duplex returns the duplex resolved at bring-up or at the last link-up.
func (d *Device) Duplex() Duplex { return d.duplex }

// HardwareAddr returns the station address in use.
func (d *Device) HardwareAddr() [6]byte { return d.mac }

// SignalIRQ records a falling edge on the INT pin. Safe in interrupt context.
func (d *Device) SignalIRQ() {
	atomic.StoreUint32(&d.irq, 1)
	d.dbgIRQ()
}

func (d *Device) takeIRQ() bool {
	return atomic.SwapUint32(&d.irq, 0) != 0
}

// critical enters the platform critical section and returns its exit.
// Use as: defer d.critical()()
func (d *Device) critical() func() {
	d.plat.EnterCritical()
	return d.plat.ExitCritical
}
