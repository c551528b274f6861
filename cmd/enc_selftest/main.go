//go:build rp2040 || rp2350

package main

import (
	"context"
	"crypto/sha1"
	"errors"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-enc624j600/enc624j600"
)

var (
	spi    = machine.SPI0
	sckPin = machine.GPIO18
	sdoPin = machine.GPIO19
	sdiPin = machine.GPIO16
	csPin  = machine.GPIO17
	intPin = machine.GPIO20
	spiHz  = uint32(14_000_000)
)

var ipv4 = []byte{0x08, 0x00}

// recvFrame waits for a looped-back frame and reads it.
func recvFrame(ctx context.Context, d *enc624j600.Device, hdr *enc624j600.Header, buf []byte) (int, error) {
	for {
		ok, err := d.PendingFrame()
		if err != nil {
			return 0, err
		}
		if ok {
			return d.Receive(hdr, buf)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
	}
}

func drain(d *enc624j600.Device) {
	for d.DropFrame() == nil {
	}
}

func fill(p []byte, seed uint32) {
	x := seed
	for i := range p {
		x = 1664525*x + 1013904223
		p[i] = byte(x >> 24)
	}
}

func ledBlink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}

func main() {
	// Give the monitor time to attach.
	time.Sleep(3 * time.Second)

	println("enc624j600 self-test starting (MAC loopback)")

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	if err := spi.Configure(enc624j600.SPIConfig{
		Frequency: spiHz,
		SCK:       sckPin,
		SDO:       sdoPin,
		SDI:       sdiPin,
		Mode:      0,
	}); err != nil {
		println("SPI configure failed")
		for {
			ledBlink(1, 500*time.Millisecond)
		}
	}

	d := enc624j600.NewSPI(spi, csPin)
	if err := d.Configure(enc624j600.Config{
		MACLoopback: true,
		Poller:      enc624j600.BoundedPoller{Limit: 100_000},
	}); err != nil {
		println("Configure failed:", err.Error())
		for {
			ledBlink(1, 500*time.Millisecond)
		}
	}
	mac := d.HardwareAddr()

	pass, fail := 0, 0
	defer func() {
		println("")
		println("Summary")
		println("  passed =", pass)
		println("  failed =", fail)
		if fail == 0 {
			ledBlink(3, 120*time.Millisecond)
		} else {
			for {
				ledBlink(1, 600*time.Millisecond)
				time.Sleep(800 * time.Millisecond)
			}
		}
	}()

	run := func(name string, f func() string) {
		println("")
		println("[Test]", name)
		if msg := f(); msg == "" {
			println("  PASS")
			pass++
		} else {
			println("  FAIL:", msg)
			fail++
		}
	}

	buf := make([]byte, 1500)

	run("receive: empty ring reports no frame", func() string {
		drain(d)
		var hdr enc624j600.Header
		if _, err := d.Receive(&hdr, buf); !errors.Is(err, enc624j600.ErrNoPendingFrame) {
			return "unexpected result on empty ring"
		}
		return ""
	})

	run("loopback: 64-byte frame", func() string {
		drain(d)
		payload := make([]byte, 50)
		fill(payload, 1)
		if err := d.Transmit(mac[:], ipv4, payload); err != nil {
			return "transmit: " + err.Error()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		var hdr enc624j600.Header
		n, err := recvFrame(ctx, d, &hdr, buf)
		if err != nil {
			return "receive: " + err.Error()
		}
		if n != len(payload) || string(buf[:n]) != string(payload) {
			return "payload mismatch"
		}
		if hdr.Source != mac || hdr.EtherType() != 0x0800 {
			return "header mismatch"
		}
		return ""
	})

	run("loopback: payload sizes 8..1500", func() string {
		drain(d)
		for _, n := range []int{8, 45, 46, 47, 255, 256, 1023, 1499, 1500} {
			payload := make([]byte, n)
			fill(payload, uint32(n))
			if err := d.Transmit(mac[:], ipv4, payload); err != nil {
				return "transmit " + itoa(n) + ": " + err.Error()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			var hdr enc624j600.Header
			got, err := recvFrame(ctx, d, &hdr, buf)
			cancel()
			if err != nil {
				return "receive " + itoa(n) + ": " + err.Error()
			}
			if got != max(n, 46) || string(buf[:n]) != string(payload) {
				return "mismatch at " + itoa(n)
			}
		}
		return ""
	})

	run("transmit: rejects 7 and 1501 byte payloads", func() string {
		if err := d.Transmit(mac[:], ipv4, make([]byte, 7)); !errors.Is(err, enc624j600.ErrFrameTooSmall) {
			return "7 bytes accepted"
		}
		if err := d.Transmit(mac[:], ipv4, make([]byte, 1501)); !errors.Is(err, enc624j600.ErrFrameExceedsMTU) {
			return "1501 bytes accepted"
		}
		return ""
	})

	run("receive: short buffer keeps the frame", func() string {
		drain(d)
		payload := make([]byte, 300)
		fill(payload, 7)
		if err := d.Transmit(mac[:], ipv4, payload); err != nil {
			return "transmit: " + err.Error()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		var hdr enc624j600.Header
		if _, err := recvFrame(ctx, d, &hdr, buf[:299]); !errors.Is(err, enc624j600.ErrBufferTooSmall) {
			return "short buffer accepted"
		}
		n, err := d.Receive(&hdr, buf)
		if err != nil || n != 300 || string(buf[:n]) != string(payload) {
			return "frame lost after short read"
		}
		return ""
	})

	run("ring: 64 frames across the wrap (SHA-1)", func() string {
		drain(d)
		payload := make([]byte, 1400)
		for i := 0; i < 64; i++ {
			fill(payload, uint32(i))
			want := sha1.Sum(payload)
			if err := d.Transmit(mac[:], ipv4, payload); err != nil {
				return "transmit: " + err.Error()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			var hdr enc624j600.Header
			n, err := recvFrame(ctx, d, &hdr, buf)
			cancel()
			if err != nil {
				return "frame " + itoa(i) + ": " + err.Error()
			}
			if sha1.Sum(buf[:n]) != want {
				return "hash mismatch at frame " + itoa(i)
			}
		}
		return ""
	})

	run("filter: multicast dropped until enabled", func() string {
		drain(d)
		group := []byte{0x01, 0x00, 0x5E, 0x00, 0x00, 0xFB}
		if err := d.Transmit(group, ipv4, make([]byte, 64)); err != nil {
			return "transmit: " + err.Error()
		}
		time.Sleep(10 * time.Millisecond)
		if n, _ := d.PendingCount(); n != 0 {
			return "multicast received with filter off"
		}
		if err := d.ConfigureFilter(enc624j600.MulticastCollection, true); err != nil {
			return err.Error()
		}
		defer d.ConfigureFilter(enc624j600.MulticastCollection, false)
		if err := d.Transmit(group, ipv4, make([]byte, 64)); err != nil {
			return "transmit: " + err.Error()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		var hdr enc624j600.Header
		if _, err := recvFrame(ctx, d, &hdr, buf); err != nil {
			return "multicast not received: " + err.Error()
		}
		if hdr.Status&enc624j600.RSV_MULTICAST == 0 {
			return "status lacks multicast bit"
		}
		return ""
	})

	run("throughput: 256 x 1500 bytes", func() string {
		drain(d)
		payload := make([]byte, 1500)
		fill(payload, 3)
		start := time.Now()
		for i := 0; i < 256; i++ {
			if err := d.Transmit(mac[:], ipv4, payload); err != nil {
				return "transmit: " + err.Error()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			var hdr enc624j600.Header
			_, err := recvFrame(ctx, d, &hdr, buf)
			cancel()
			if err != nil {
				return "receive: " + err.Error()
			}
		}
		ms := int(time.Since(start) / time.Millisecond)
		if ms <= 0 {
			ms = 1
		}
		// Each frame crosses SPI twice.
		kbpsX100 := (256*1500*2*8*100 + ms/2) / ms
		println("  speed =", formatFixed2(kbpsX100), "kbps")
		return ""
	})

	run("interrupts: INT pin reports a looped frame", func() string {
		intPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		err := intPin.SetInterrupt(machine.PinFalling, func(machine.Pin) { d.SignalIRQ() })
		if err != nil {
			return "SetInterrupt: " + err.Error()
		}
		defer intPin.SetInterrupt(0, nil)
		if err := d.Configure(enc624j600.Config{MACLoopback: true, Interrupts: true}); err != nil {
			return "Configure: " + err.Error()
		}
		if err := d.Transmit(mac[:], ipv4, make([]byte, 100)); err != nil {
			return "transmit: " + err.Error()
		}
		deadline := time.Now().Add(500 * time.Millisecond)
		var seen enc624j600.Event
		for time.Now().Before(deadline) && !seen.Has(enc624j600.FramePending) {
			ev, err := d.Pump()
			if err != nil {
				return "pump: " + err.Error()
			}
			seen |= ev
		}
		if !seen.Has(enc624j600.FramePending) {
			return "no FramePending event"
		}
		return ""
	})

	println("")
	println("All tests completed")
}

// --- tiny helpers (no fmt) ---

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	return string(buf[i:])
}

func formatFixed2(x int) string {
	frac := x % 100
	s := itoa(x/100) + "."
	if frac < 10 {
		s += "0"
	}
	return s + itoa(frac)
}
