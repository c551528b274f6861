//go:build (rp2040 || rp2350) && encdebug

package main

import (
	"context"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-enc624j600/enc624j600"
)

func must[T any](v T, err error) T {
	if err != nil {
		println("fatal:", err.Error())
		for {
			time.Sleep(time.Hour)
		}
	}
	return v
}

func printStats(d *enc624j600.Device, label string) {
	s := d.DebugStats()
	r := must(d.DebugRegs())
	println("==", label)
	println("SPI:    scopes=", s.Transactions, " winRead=", s.WindowRead, " winWrite=", s.WindowWrite)
	println("TX:     frames=", s.TxFrames, " bytes=", s.TxBytes, " failed=", s.TxFailed)
	println("RX:     frames=", s.RxFrames, " bytes=", s.RxBytes, " dropped=", s.RxDropped, " tooSmall=", s.RxTooSmall)
	println("Events: irqs=", s.IRQs, " link=", s.LinkChanges, " resets=", s.Resets)
	println("Regs:   ESTAT=0x", hex16(r.ESTAT), " EIR=0x", hex16(r.EIR), " ECON1=0x", hex16(r.ECON1),
		" ECON2=0x", hex16(r.ECON2), " ERXFCON=0x", hex16(r.ERXFCON))
	println("Ring:   ERXHEAD=0x", hex16(r.ERXHEAD), " ERXTAIL=0x", hex16(r.ERXTAIL))
	println("MAC:    MACON2=0x", hex16(r.MACON2), " ETXSTAT=0x", hex16(r.ETXSTAT),
		" ETXWIRE=", r.ETXWIRE, " PHSTAT1=0x", hex16(r.PHSTAT1))
}

func hex16(v uint16) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[v>>12], digits[v>>8&0xF], digits[v>>4&0xF], digits[v&0xF]})
}

// recvAll reads frames until n arrived or ctx ends.
func recvAll(ctx context.Context, d *enc624j600.Device, n int) int {
	got := 0
	buf := make([]byte, 1500)
	var hdr enc624j600.Header
	for got < n {
		if _, err := d.Receive(&hdr, buf); err == nil {
			got++
			continue
		}
		select {
		case <-ctx.Done():
			return got
		default:
		}
	}
	return got
}

func main() {
	delay := 10
	for i := 0; i < delay; i++ {
		println("probe starting in ", delay-i, " seconds")
		time.Sleep(time.Second)
	}
	println("enc624j600 probe (diagnostic)")

	spi := machine.SPI0
	must(0, spi.Configure(enc624j600.SPIConfig{
		Frequency: 14_000_000,
		SCK:       machine.GPIO18,
		SDO:       machine.GPIO19,
		SDI:       machine.GPIO16,
	}))
	d := enc624j600.NewSPI(spi, machine.GPIO17)
	must(0, d.Configure(enc624j600.Config{MACLoopback: true}))
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	mac := d.HardwareAddr()
	printStats(d, "after bring-up")

	// Phase 1: single frame
	println("\n[phase] loopback-1")
	d.DebugReset()
	must(0, d.Transmit(mac[:], []byte{0x08, 0x00}, make([]byte, 64)))
	ctx1, cancel1 := context.WithTimeout(context.Background(), time.Second)
	println(" result: received", recvAll(ctx1, d, 1), "of 1")
	cancel1()
	printStats(d, "after loopback-1")

	// Phase 2: fill the ring without reading, then drain
	println("\n[phase] ring-fill (transmit 20 x 1500 before reading)")
	d.DebugReset()
	payload := make([]byte, 1500)
	for i := range payload {
		payload[i] = byte(i)
	}
	for i := 0; i < 20; i++ {
		if err := d.Transmit(mac[:], []byte{0x08, 0x00}, payload); err != nil {
			println(" transmit", i, "failed:", err.Error())
			break
		}
	}
	pending, _ := d.PendingCount()
	free, _ := d.RxRingFree()
	println(" pending=", pending, " ringFree=", free)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 3*time.Second)
	println(" result: received", recvAll(ctx2, d, 20), "of 20")
	cancel2()
	printStats(d, "after ring-fill")

	// Phase 3: events
	println("\n[phase] pump")
	d.DebugReset()
	must(0, d.Transmit(mac[:], []byte{0x08, 0x00}, make([]byte, 46)))
	time.Sleep(5 * time.Millisecond)
	ev := must(d.Pump())
	println(" events: frame=", ev.Has(enc624j600.FramePending), " txdone=", ev.Has(enc624j600.TransmitDone),
		" txabort=", ev.Has(enc624j600.TransmitAborted), " rxabort=", ev.Has(enc624j600.ReceiveAborted))
	printStats(d, "after pump")

	println("\ndone")
}
