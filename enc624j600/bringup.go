// enc624j600/bringup.go

package enc624j600

import (
	"log/slog"
	"net"
	"sync/atomic"
)

// Configure resets the chip and brings it up according to cfg. It blocks
// until the PHY reports link unless a loopback mode is selected. With the
// default BusyPoller no step times out.
func (d *Device) Configure(cfg Config) error {
	if cfg.HardwareAddr != nil && len(cfg.HardwareAddr) != 6 {
		return ErrInvalidArgument
	}
	d.configured = false
	d.log = cfg.Logger
	d.poller = cfg.Poller
	if d.poller == nil {
		d.poller = BusyPoller{}
	}
	d.interrupts = cfg.Interrupts
	atomic.StoreUint32(&d.irq, 0)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"reset", d.reset},
		{"buffers", d.initBuffers},
		{"filters", d.initFilters},
		{"mac", func() error { return d.initMAC(cfg) }},
		{"phy", func() error { return d.initPHY(cfg) }},
		{"enable rx", func() error { return d.execute(opENABLERX) }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			d.debug("bring-up failed", slog.String("step", s.name), attrErr(err))
			return err
		}
		d.debug("bring-up", slog.String("step", s.name))
	}

	if !cfg.MACLoopback && !cfg.PHYLoopback {
		err := d.wait(StageLink, func() (bool, error) {
			v, err := d.ReadPHY(PHSTAT1)
			return v&PHSTAT1_LLSTAT != 0, err
		})
		if err != nil {
			return err
		}
		d.link = true
	} else {
		d.link = false
	}
	if err := d.resolveDuplex(); err != nil {
		return err
	}
	if cfg.Interrupts {
		if err := d.enableInterrupts(); err != nil {
			return err
		}
	}
	d.configured = true
	d.info("enc624j600 up",
		slog.String("mac", net.HardwareAddr(d.mac[:]).String()),
		slog.String("duplex", d.duplex.String()),
		slog.Bool("link", d.link))
	return nil
}

// reset waits for the SPI interface and the internal clock, then performs a
// full system reset.
func (d *Device) reset() error {
	err := d.wait(StageSPIAlive, func() (bool, error) {
		if err := d.WriteRegister(EUDAST, scratchSentinel); err != nil {
			return false, err
		}
		v, err := d.ReadRegister(EUDAST)
		return v == scratchSentinel, err
	})
	if err != nil {
		return err
	}
	err = d.wait(StageClockReady, func() (bool, error) {
		v, err := d.ReadRegister(ESTAT)
		return v&ESTAT_CLKRDY != 0, err
	})
	if err != nil {
		return err
	}
	if err := d.execute(opSETETHRST); err != nil {
		return err
	}
	d.plat.DelayMicroseconds(resetSettleDelay)
	err = d.wait(StageReset, func() (bool, error) {
		v, err := d.ReadRegister(EUDAST)
		return v == 0, err
	})
	if err != nil {
		return err
	}
	d.plat.DelayMicroseconds(postResetDelay)
	d.dbgReset()
	return nil
}

// initBuffers lays out SRAM: transmit staging below ERXST, the receive ring
// above it, and a disabled user-defined area.
func (d *Device) initBuffers() error {
	if err := d.ClearBits(ECON2, ECON2_COCON); err != nil {
		return err
	}
	if err := d.WriteRegister(ERXST, rxStart); err != nil {
		return err
	}
	d.nextFrame = rxStart
	d.decPending = false
	if err := d.WriteRegister(ERXTAIL, rxTailInit); err != nil {
		return err
	}
	ptrs := []struct {
		p Pointer
		v uint16
	}{
		{RxRead, rxStart},
		{RxWrite, rxStart},
		{GPRead, txStart},
		{GPWrite, txStart},
	}
	for _, pv := range ptrs {
		if err := d.WritePointer(pv.p, pv.v); err != nil {
			return err
		}
	}
	if err := d.WriteRegister(EUDAST, udaStart); err != nil {
		return err
	}
	if err := d.WriteRegister(EUDAND, udaEnd); err != nil {
		return err
	}
	if err := d.WritePointer(UDARead, 0); err != nil {
		return err
	}
	return d.WritePointer(UDAWrite, 0)
}

func (d *Device) initMAC(cfg Config) error {
	if err := d.WriteRegister(ERXWM, rxWatermark); err != nil {
		return err
	}
	if err := d.SetBits(ECON2, ECON2_AUTOFC); err != nil {
		return err
	}
	on := uint16(MACON2_TXCRCEN | MACON2_PADCFG0)
	if cfg.HugeFrames {
		on |= MACON2_HFRMEN
	}
	if err := d.modify(MACON2, MACON2_PADCFG|MACON2_HFRMEN, on); err != nil {
		return err
	}
	if err := d.SetBits(ECON2, ECON2_TXMAC); err != nil {
		return err
	}
	if err := d.WriteRegister(MAMXFL, maxFrameLength); err != nil {
		return err
	}
	if cfg.MACLoopback {
		if err := d.SetBits(MACON1, MACON1_LOOPBK); err != nil {
			return err
		}
	}
	if cfg.HardwareAddr != nil {
		return d.setHardwareAddr(cfg.HardwareAddr)
	}
	return d.readHardwareAddr()
}

var macRegs = [3]Register{MAADR1, MAADR2, MAADR3}

func (d *Device) setHardwareAddr(mac []byte) error {
	for i, r := range macRegs {
		if err := d.WriteRegister(r, uint16(mac[2*i])|uint16(mac[2*i+1])<<8); err != nil {
			return err
		}
	}
	copy(d.mac[:], mac)
	return nil
}

func (d *Device) readHardwareAddr() error {
	for i, r := range macRegs {
		v, err := d.ReadRegister(r)
		if err != nil {
			return err
		}
		d.mac[2*i] = byte(v)
		d.mac[2*i+1] = byte(v >> 8)
	}
	return nil
}

func (d *Device) initPHY(cfg Config) error {
	var loop uint16
	if cfg.PHYLoopback {
		loop = PHCON1_PLOOPBK
	}
	if err := d.modifyPHY(PHCON1, PHCON1_PSLEEP|PHCON1_PLOOPBK, PHCON1_ANEN|loop); err != nil {
		return err
	}
	return d.modifyPHY(PHANA, 0, PHANA_AD10|PHANA_AD10FD|PHANA_AD100|PHANA_AD100FD|PHANA_ADPAUS0)
}

// resolveDuplex matches the MAC to the duplex the PHY negotiated.
func (d *Device) resolveDuplex() error {
	st, err := d.ReadRegister(ESTAT)
	if err != nil {
		return err
	}
	if st&ESTAT_PHYDPX != 0 {
		if err := d.SetBits(MACON2, MACON2_FULDPX); err != nil {
			return err
		}
		if err := d.WriteRegister(MABBIPG, ipgFullDuplex); err != nil {
			return err
		}
		d.duplex = FullDuplex
	} else {
		if err := d.ClearBits(MACON2, MACON2_FULDPX); err != nil {
			return err
		}
		if err := d.WriteRegister(MABBIPG, ipgHalfDuplex); err != nil {
			return err
		}
		d.duplex = HalfDuplex
	}
	d.debug("duplex", slog.String("mode", d.duplex.String()), attrU16("estat", st))
	return nil
}

const interruptMask = EIE_INTIE | EIE_LINKIE | EIE_PKTIE | EIE_TXIE |
	EIE_TXABTIE | EIE_RXABTIE | EIE_PCFULIE

func (d *Device) enableInterrupts() error {
	if err := d.ClearBits(EIR, EIR_LINKIF|EIR_PKTIF|EIR_TXIF|EIR_TXABTIF|EIR_RXABTIF|EIR_PCFULIF); err != nil {
		return err
	}
	if err := d.WriteRegister(EIE, interruptMask); err != nil {
		return err
	}
	return d.execute(opSETEIE)
}
