// enc624j600/pump.go

package enc624j600

import "log/slog"

// Event is a set of conditions reported by Pump.
type Event uint8

const (
	LinkChanged Event = 1 << iota
	FramePending
	TransmitDone
	TransmitAborted
	ReceiveAborted
	PacketCounterFull
)

func (e Event) Has(f Event) bool { return e&f != 0 }

var eventFlags = [...]struct {
	eir uint16
	ev  Event
}{
	{EIR_LINKIF, LinkChanged},
	{EIR_PKTIF, FramePending},
	{EIR_TXIF, TransmitDone},
	{EIR_TXABTIF, TransmitAborted},
	{EIR_RXABTIF, ReceiveAborted},
	{EIR_PCFULIF, PacketCounterFull},
}

const pumpFlags = EIR_LINKIF | EIR_PKTIF | EIR_TXIF | EIR_TXABTIF | EIR_RXABTIF | EIR_PCFULIF

// Pump services the chip's interrupt flags and returns what happened since
// the last call. With interrupts enabled it returns immediately unless
// SignalIRQ was called. A link-up change re-resolves the duplex. Frame
// reception itself is left to Receive. On error in interrupt mode the IRQ
// stays signalled so the next call retries.
func (d *Device) Pump() (ev Event, err error) {
	if !d.configured {
		return 0, ErrNotConfigured
	}
	if d.interrupts && !d.takeIRQ() {
		return 0, nil
	}
	if d.interrupts {
		// Hold INT low-going edges off while flags are cleared.
		if err := d.execute(opCLREIE); err != nil {
			d.SignalIRQ()
			return 0, err
		}
		defer func() {
			if eerr := d.execute(opSETEIE); err == nil {
				err = eerr
			}
			if err != nil {
				d.SignalIRQ()
			}
		}()
	}
	eir, err := d.ReadRegister(EIR)
	if err != nil {
		return 0, err
	}
	flags := eir & pumpFlags
	// PKTIF follows PKTCNT and cannot be cleared directly.
	if clr := flags &^ EIR_PKTIF; clr != 0 {
		if err := d.ClearBits(EIR, clr); err != nil {
			return 0, err
		}
	}
	for _, f := range eventFlags {
		if flags&f.eir != 0 {
			ev |= f.ev
		}
	}
	if ev.Has(LinkChanged) {
		up, err := d.LinkStatus()
		if err != nil {
			return ev, err
		}
		d.link = up
		if up {
			if err := d.resolveDuplex(); err != nil {
				return ev, err
			}
		}
		d.dbgLinkChange()
		d.info("link", slog.Bool("up", up), slog.String("duplex", d.duplex.String()))
	}
	if ev != 0 {
		d.debug("pump", attrU16("eir", eir))
	}
	return ev, nil
}

// LinkStatus reports the PHY link state from ESTAT.PHYLNK.
func (d *Device) LinkStatus() (bool, error) {
	st, err := d.ReadRegister(ESTAT)
	if err != nil {
		return false, err
	}
	return st&ESTAT_PHYLNK != 0, nil
}

// Link returns the link state last observed by Configure or Pump.
func (d *Device) Link() bool { return d.link }
