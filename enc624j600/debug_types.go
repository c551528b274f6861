//go:build encdebug

package enc624j600

import "sync/atomic"

// Stats holds counters since the last reset.
type Stats struct {
	// SPI
	Transactions uint32 // chip-select scopes
	WindowRead   uint32 // bytes read through SRAM windows
	WindowWrite  uint32 // bytes written through SRAM windows

	// Transmit
	TxFrames uint32
	TxBytes  uint32 // payload bytes
	TxFailed uint32 // ETXSTAT/ETXWIRE check failures

	// Receive
	RxFrames   uint32
	RxBytes    uint32 // payload bytes
	RxDropped  uint32 // DropFrame calls
	RxTooSmall uint32 // ErrBufferTooSmall returns

	// Chip events
	IRQs        uint32 // SignalIRQ calls
	LinkChanges uint32
	Resets      uint32
}

func (d *Device) DebugReset() {
	d.stats = Stats{}
}

func (d *Device) DebugStats() Stats {
	return Stats{
		Transactions: atomic.LoadUint32(&d.stats.Transactions),
		WindowRead:   atomic.LoadUint32(&d.stats.WindowRead),
		WindowWrite:  atomic.LoadUint32(&d.stats.WindowWrite),

		TxFrames: atomic.LoadUint32(&d.stats.TxFrames),
		TxBytes:  atomic.LoadUint32(&d.stats.TxBytes),
		TxFailed: atomic.LoadUint32(&d.stats.TxFailed),

		RxFrames:   atomic.LoadUint32(&d.stats.RxFrames),
		RxBytes:    atomic.LoadUint32(&d.stats.RxBytes),
		RxDropped:  atomic.LoadUint32(&d.stats.RxDropped),
		RxTooSmall: atomic.LoadUint32(&d.stats.RxTooSmall),

		IRQs:        atomic.LoadUint32(&d.stats.IRQs),
		LinkChanges: atomic.LoadUint32(&d.stats.LinkChanges),
		Resets:      atomic.LoadUint32(&d.stats.Resets),
	}
}

// Regs is a snapshot of the registers worth looking at when frames go missing.
type Regs struct {
	ESTAT   uint16
	EIR     uint16
	ECON1   uint16
	ECON2   uint16
	ERXFCON uint16
	ERXHEAD uint16
	ERXTAIL uint16
	MACON2  uint16
	ETXSTAT uint16
	ETXWIRE uint16
	PHSTAT1 uint16
}

func (d *Device) DebugRegs() (Regs, error) {
	var r Regs
	sfrs := []struct {
		reg Register
		dst *uint16
	}{
		{ESTAT, &r.ESTAT}, {EIR, &r.EIR}, {ECON1, &r.ECON1}, {ECON2, &r.ECON2},
		{ERXFCON, &r.ERXFCON}, {ERXHEAD, &r.ERXHEAD}, {ERXTAIL, &r.ERXTAIL},
		{MACON2, &r.MACON2}, {ETXSTAT, &r.ETXSTAT}, {ETXWIRE, &r.ETXWIRE},
	}
	for _, s := range sfrs {
		v, err := d.ReadRegister(s.reg)
		if err != nil {
			return r, err
		}
		*s.dst = v
	}
	v, err := d.ReadPHY(PHSTAT1)
	r.PHSTAT1 = v
	return r, err
}
