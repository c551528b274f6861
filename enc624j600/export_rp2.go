// enc624j600/export_rp2.go

//go:build rp2040 || rp2350

package enc624j600

import "machine"

type SPIConfig = machine.SPIConfig

// NewSPI sets cs up as an output and returns a driver for the chip on spi.
// spi must already be configured for mode 0.
func NewSPI(spi *machine.SPI, cs machine.Pin) *Device {
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return New(spi, cs, nil)
}
