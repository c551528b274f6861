// spidev/spidev.go

//go:build linux

// Package spidev drives an SPI bus from Linux user space through
// /dev/spidevB.C. Bus satisfies the tinygo.org/x/drivers SPI interface, so
// the enc624j600 driver runs unchanged on a Linux host.
package spidev

import (
	"fmt"
	"runtime"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
	"tinygo.org/x/drivers"
)

var _ drivers.SPI = (*Bus)(nil)

// ioctl request numbers from linux/spi/spidev.h.
const (
	iocWrite = 1

	spiIOCMagic = 'k'
)

func iow(nr, size uintptr) uintptr {
	return iocWrite<<30 | size<<16 | spiIOCMagic<<8 | nr
}

var (
	spiIOCMessage1      = iow(0, unsafe.Sizeof(transfer{}))
	spiIOCWrMode        = iow(1, 1)
	spiIOCWrBitsPerWord = iow(3, 1)
	spiIOCWrMaxSpeedHz  = iow(4, 4)
)

// transfer mirrors struct spi_ioc_transfer.
type transfer struct {
	txBuf       uint64
	rxBuf       uint64
	len         uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	_           uint8
}

// Config selects the bus parameters. Zero fields take the defaults: mode 0,
// 8 bits per word and 14 MHz, the ENC624J600's fastest clock.
type Config struct {
	Mode        uint8
	BitsPerWord uint8
	SpeedHz     uint32
}

// Bus is an open spidev character device. Every Tx is one ioctl, so the
// kernel holds chip select for exactly one driver transaction.
type Bus struct {
	fd   int
	path string
	cfg  Config

	scratch []byte
}

// Open opens path and applies cfg.
func Open(path string, cfg Config) (*Bus, error) {
	if cfg.BitsPerWord == 0 {
		cfg.BitsPerWord = 8
	}
	if cfg.SpeedHz == 0 {
		cfg.SpeedHz = 14_000_000
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("spidev: open %s: %w", path, err)
	}
	b := &Bus{fd: fd, path: path, cfg: cfg}
	mode, bits, speed := cfg.Mode, cfg.BitsPerWord, cfg.SpeedHz
	settings := []struct {
		name string
		req  uintptr
		arg  unsafe.Pointer
	}{
		{"mode", spiIOCWrMode, unsafe.Pointer(&mode)},
		{"bits per word", spiIOCWrBitsPerWord, unsafe.Pointer(&bits)},
		{"max speed", spiIOCWrMaxSpeedHz, unsafe.Pointer(&speed)},
	}
	for _, s := range settings {
		if err := b.ioctl(s.req, s.arg); err != nil {
			err = fmt.Errorf("spidev: %s: set %s: %w", path, s.name, err)
			return nil, multierr.Append(err, unix.Close(fd))
		}
	}
	return b, nil
}

func (b *Bus) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// Tx clocks w out while filling r. The shorter of the two is padded: missing
// output bytes are sent as zero and surplus input is discarded.
func (b *Bus) Tx(w, r []byte) error {
	n := max(len(w), len(r))
	if n == 0 {
		return nil
	}
	if cap(b.scratch) < 2*n {
		b.scratch = make([]byte, 2*n)
	}
	tx, rx := w, r
	if len(w) < n {
		tx = b.scratch[:n]
		clear(tx[copy(tx, w):])
	}
	if len(r) < n {
		rx = b.scratch[n : 2*n]
	}
	xfer := transfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		len:         uint32(n),
		speedHz:     b.cfg.SpeedHz,
		bitsPerWord: b.cfg.BitsPerWord,
	}
	err := b.ioctl(spiIOCMessage1, unsafe.Pointer(&xfer))
	// The kernel sees the buffers only as integers in xfer.
	runtime.KeepAlive(tx)
	runtime.KeepAlive(rx)
	if err != nil {
		return fmt.Errorf("spidev: %s: transfer %d bytes: %w", b.path, n, err)
	}
	if len(r) < n {
		copy(r, rx)
	}
	return nil
}

// Transfer clocks one byte out and returns the byte clocked in.
func (b *Bus) Transfer(w byte) (byte, error) {
	var r [1]byte
	err := b.Tx([]byte{w}, r[:])
	return r[0], err
}

// Close releases the device.
func (b *Bus) Close() error {
	return unix.Close(b.fd)
}

// NoCS is a chip-select pin for buses where the kernel drives chip select.
type NoCS struct{}

func (NoCS) High() {}
func (NoCS) Low()  {}
