//go:build !encdebug

package enc624j600

type Stats struct{}

func (d *Device) DebugReset()       {}
func (d *Device) DebugStats() Stats { return Stats{} }

type Regs struct{}

func (d *Device) DebugRegs() (Regs, error) { return Regs{}, nil }

func (d *Device) dbgTransaction(int) {}
func (d *Device) dbgWindowRead(int)  {}
func (d *Device) dbgWindowWrite(int) {}
func (d *Device) dbgTxFrame(int)     {}
func (d *Device) dbgTxFailed()       {}
func (d *Device) dbgRxFrame(int)     {}
func (d *Device) dbgRxDropped()      {}
func (d *Device) dbgRxTooSmall()     {}
func (d *Device) dbgIRQ()            {}
func (d *Device) dbgLinkChange()     {}
func (d *Device) dbgReset()          {}
