package enc624j600

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jangala-dev/tinygo-enc624j600/enc624j600/simchip"
)

// pair returns two configured devices on back-to-back simulated chips.
func pair(t *testing.T) (a, b *Device, ca, cb *simchip.Chip) {
	t.Helper()
	a, ca = newTestDevice(simchip.DefaultMAC)
	b, cb = newTestDevice(peerMAC)
	simchip.Connect(ca, cb)
	for _, d := range []*Device{a, b} {
		if err := d.Configure(Config{}); err != nil {
			t.Fatalf("Configure: %v", err)
		}
	}
	return a, b, ca, cb
}

// glitchBus passes transactions to the chip, except that once armed it fails
// the skip+1'th transaction starting with prefix without reaching the chip.
type glitchBus struct {
	*simchip.Chip
	prefix []byte
	skip   int
	armed  bool
}

var errGlitch = errors.New("glitch")

func (b *glitchBus) arm(skip int, prefix ...byte) {
	b.prefix, b.skip, b.armed = prefix, skip, true
}

func (b *glitchBus) Tx(w, r []byte) error {
	if b.armed && bytes.HasPrefix(w, b.prefix) {
		if b.skip == 0 {
			b.armed = false
			return errGlitch
		}
		b.skip--
	}
	return b.Chip.Tx(w, r)
}

// glitchDevice returns a configured device whose bus can be made to fail.
func glitchDevice(t *testing.T, cfg Config) (*Device, *glitchBus) {
	t.Helper()
	bus := &glitchBus{Chip: simchip.New(simchip.DefaultMAC)}
	d := New(bus, bus.CS(), bus.Chip)
	if err := d.Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return d, bus
}

// frameTo builds a wire frame (no CRC) addressed to dst.
func frameTo(dst, src [6]byte, payload []byte) []byte {
	f := append([]byte{}, dst[:]...)
	f = append(f, src[:]...)
	f = append(f, ipv4...)
	return append(f, payload...)
}

func TestReceive_NoPendingFrame(t *testing.T) {
	d, chip := configured(t, Config{})
	tail := chip.Register(uint8(ERXTAIL))

	var hdr Header
	n, err := d.Receive(&hdr, make([]byte, 1500))
	if !errors.Is(err, ErrNoPendingFrame) || n != 0 {
		t.Fatalf("got n=%d err=%v; want 0, ErrNoPendingFrame", n, err)
	}
	if d.nextFrame != rxStart {
		t.Fatalf("nextFrame moved to %#04x", d.nextFrame)
	}
	if got := chip.Register(uint8(ERXTAIL)); got != tail {
		t.Fatalf("ERXTAIL moved from %#04x to %#04x", tail, got)
	}
}

func TestReceive_InvalidArguments(t *testing.T) {
	d, _ := configured(t, Config{})
	if _, err := d.Receive(nil, make([]byte, 10)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil header: got %v", err)
	}
	if _, err := d.Receive(&Header{}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil payload: got %v", err)
	}
	if _, err := d.ReadFrame(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil frame buffer: got %v", err)
	}
}

func TestReceive_RoundTrip(t *testing.T) {
	a, b, _, _ := pair(t)
	buf := make([]byte, 1500)

	for _, n := range []int{8, 45, 46, 47, 300, 1500} {
		payload := pattern(n, byte(n))
		if err := a.Transmit(peerMAC[:], ipv4, payload); err != nil {
			t.Fatalf("len %d: Transmit: %v", n, err)
		}
		var hdr Header
		got, err := b.Receive(&hdr, buf)
		if err != nil {
			t.Fatalf("len %d: Receive: %v", n, err)
		}
		if want := max(n, 46); got != want {
			t.Fatalf("len %d: received %d bytes want %d", n, got, want)
		}
		if diff := cmp.Diff(payload, buf[:n]); diff != "" {
			t.Fatalf("len %d: payload (-want +got):\n%s", n, diff)
		}
		for i := n; i < got; i++ {
			if buf[i] != 0 {
				t.Fatalf("len %d: pad byte %d = %#02x", n, i, buf[i])
			}
		}
		want := Header{Destination: peerMAC, Source: simchip.DefaultMAC, LengthType: [2]byte{0x08, 0x00}}
		hdr.Status = 0
		if diff := cmp.Diff(want, hdr); diff != "" {
			t.Fatalf("len %d: header (-want +got):\n%s", n, diff)
		}
		if hdr.EtherType() != 0x0800 {
			t.Fatalf("EtherType got %#04x", hdr.EtherType())
		}
	}
}

func TestReceive_TailTrailsNextFrame(t *testing.T) {
	_, b, _, cb := pair(t)
	buf := make([]byte, 1500)
	for i := 0; i < 4; i++ {
		if !cb.Inject(frameTo(peerMAC, simchip.DefaultMAC, pattern(100+i, 3))) {
			t.Fatalf("frame %d rejected", i)
		}
	}
	for i := 0; i < 4; i++ {
		var hdr Header
		if _, err := b.Receive(&hdr, buf); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		tail := cb.Register(uint8(ERXTAIL))
		if tail != b.nextFrame-2 || tail&1 != 0 {
			t.Fatalf("frame %d: ERXTAIL %#04x with next %#04x", i, tail, b.nextFrame)
		}
		if b.nextFrame&1 != 0 {
			t.Fatalf("frame %d: next frame pointer %#04x is odd", i, b.nextFrame)
		}
	}
	if cb.Pending() != 0 {
		t.Fatalf("pending got %d want 0", cb.Pending())
	}
}

func TestReceive_RingWraps(t *testing.T) {
	_, b, _, cb := pair(t)
	buf := make([]byte, 1500)
	wrapped := false
	for round := 0; round < 6; round++ {
		var sent [][]byte
		for i := 0; i < 8; i++ {
			p := pattern(1200+i, byte(round*8+i))
			if !cb.Inject(frameTo(peerMAC, simchip.DefaultMAC, p)) {
				t.Fatalf("round %d frame %d rejected", round, i)
			}
			sent = append(sent, p)
		}
		for i, p := range sent {
			prev := b.nextFrame
			var hdr Header
			n, err := b.Receive(&hdr, buf)
			if err != nil {
				t.Fatalf("round %d frame %d: %v", round, i, err)
			}
			if diff := cmp.Diff(p, buf[:n]); diff != "" {
				t.Fatalf("round %d frame %d payload (-want +got):\n%s", round, i, diff)
			}
			if b.nextFrame < prev {
				wrapped = true
			}
		}
	}
	if !wrapped {
		t.Fatal("receive ring never wrapped")
	}
}

func TestReceive_BufferTooSmallKeepsFrame(t *testing.T) {
	_, b, _, cb := pair(t)
	payload := pattern(200, 5)
	cb.Inject(frameTo(peerMAC, simchip.DefaultMAC, payload))
	tail := cb.Register(uint8(ERXTAIL))

	var hdr Header
	_, err := b.Receive(&hdr, make([]byte, 199))
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("got %v want ErrBufferTooSmall", err)
	}
	if b.nextFrame != rxStart || cb.Pending() != 1 || cb.Register(uint8(ERXTAIL)) != tail {
		t.Fatalf("state moved: next=%#04x pending=%d", b.nextFrame, cb.Pending())
	}

	buf := make([]byte, 200)
	n, err := b.Receive(&hdr, buf)
	if err != nil || n != 200 {
		t.Fatalf("retry: n=%d err=%v", n, err)
	}
	if diff := cmp.Diff(payload, buf); diff != "" {
		t.Fatalf("payload (-want +got):\n%s", diff)
	}
}

func TestDropFrame(t *testing.T) {
	_, b, _, cb := pair(t)
	cb.Inject(frameTo(peerMAC, simchip.DefaultMAC, pattern(100, 1)))
	cb.Inject(frameTo(peerMAC, simchip.DefaultMAC, pattern(120, 2)))

	if err := b.DropFrame(); err != nil {
		t.Fatalf("DropFrame: %v", err)
	}
	if cb.Pending() != 1 {
		t.Fatalf("pending got %d want 1", cb.Pending())
	}
	var hdr Header
	buf := make([]byte, 1500)
	n, err := b.Receive(&hdr, buf)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if diff := cmp.Diff(pattern(120, 2), buf[:n]); diff != "" {
		t.Fatalf("second frame (-want +got):\n%s", diff)
	}
	if err := b.DropFrame(); !errors.Is(err, ErrNoPendingFrame) {
		t.Fatalf("empty DropFrame got %v", err)
	}
}

func TestReadFrame(t *testing.T) {
	_, b, _, cb := pair(t)
	f := frameTo(peerMAC, simchip.DefaultMAC, pattern(64, 8))
	cb.Inject(f)

	if _, err := b.ReadFrame(make([]byte, len(f)-1)); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("short buffer got %v", err)
	}
	buf := make([]byte, 1514)
	n, err := b.ReadFrame(buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if diff := cmp.Diff(f, buf[:n]); diff != "" {
		t.Fatalf("frame (-want +got):\n%s", diff)
	}
}

func TestReceive_MalformedVector(t *testing.T) {
	_, b, _, cb := pair(t)
	cb.Inject(frameTo(peerMAC, simchip.DefaultMAC, pattern(64, 8)))
	b.nextFrame = 0x3000 // unwritten ring memory
	if _, err := b.Receive(&Header{}, make([]byte, 1500)); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("got %v want ErrMalformedFrame", err)
	}
}

func TestPendingAndRingFree(t *testing.T) {
	_, b, _, cb := pair(t)
	free, err := b.RxRingFree()
	if err != nil {
		t.Fatalf("RxRingFree: %v", err)
	}
	if free != ringSize-2 {
		t.Fatalf("free got %d want %d", free, ringSize-2)
	}
	if ok, _ := b.PendingFrame(); ok {
		t.Fatal("pending before any frame")
	}

	cb.Inject(frameTo(peerMAC, simchip.DefaultMAC, pattern(46, 1))) // 8+60+4 bytes in the ring
	if ok, _ := b.PendingFrame(); !ok {
		t.Fatal("no pending frame after inject")
	}
	if n, _ := b.PendingCount(); n != 1 {
		t.Fatalf("PendingCount got %d want 1", n)
	}
	if free, _ := b.RxRingFree(); free != ringSize-2-72 {
		t.Fatalf("free got %d want %d", free, ringSize-2-72)
	}
	if _, err := b.Receive(&Header{}, make([]byte, 64)); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if free, _ := b.RxRingFree(); free != ringSize-2 {
		t.Fatalf("free after receive got %d want %d", free, ringSize-2)
	}
}

func TestRingArithmetic(t *testing.T) {
	cases := []struct {
		next, tail uint16
	}{
		{0x2000, 0x5FFE},
		{0x2002, 0x2000},
		{0x2048, 0x2046},
		{0x5FFE, 0x5FFC},
	}
	for _, tc := range cases {
		if got := tailFor(tc.next); got != tc.tail {
			t.Errorf("tailFor(%#04x) got %#04x want %#04x", tc.next, got, tc.tail)
		}
	}
	if got := ringUsed(0x2010, 0x5FFE); got != 0x10 {
		t.Errorf("ringUsed wrap-start got %#04x want 0x10", got)
	}
	if got := ringUsed(0x2010, 0x5FF0); got != 0x1E {
		t.Errorf("ringUsed across end got %#04x want 0x1e", got)
	}
	for _, p := range []uint16{0x1FFE, 0x2001, 0x6000} {
		if validFramePointer(p) {
			t.Errorf("validFramePointer(%#04x) true", p)
		}
	}
}

func TestReceive_BusErrorMidFrameKeepsFrame(t *testing.T) {
	d, bus := glitchDevice(t, Config{})
	payload := pattern(100, 3)
	bus.Inject(frameTo(simchip.DefaultMAC, peerMAC, payload))
	tail := bus.Register(uint8(ERXTAIL))

	// Third RXDATA read is the payload: vector, header, payload.
	bus.arm(2, byte(opRRXDATA))
	var hdr Header
	buf := make([]byte, 1500)
	if _, err := d.Receive(&hdr, buf); !errors.Is(err, errGlitch) {
		t.Fatalf("got %v want glitch", err)
	}
	if d.nextFrame != rxStart || bus.Pending() != 1 || bus.Register(uint8(ERXTAIL)) != tail {
		t.Fatalf("state moved: next=%#04x pending=%d tail=%#04x",
			d.nextFrame, bus.Pending(), bus.Register(uint8(ERXTAIL)))
	}

	n, err := d.Receive(&hdr, buf)
	if err != nil || n != 100 {
		t.Fatalf("retry: n=%d err=%v", n, err)
	}
	if diff := cmp.Diff(payload, buf[:n]); diff != "" {
		t.Fatalf("payload (-want +got):\n%s", diff)
	}
}

func TestReceive_TailWriteFailureKeepsFrame(t *testing.T) {
	d, bus := glitchDevice(t, Config{})
	payload := pattern(100, 4)
	bus.Inject(frameTo(simchip.DefaultMAC, peerMAC, payload))
	tail := bus.Register(uint8(ERXTAIL))

	bus.arm(0, byte(opWCRU), byte(ERXTAIL))
	var hdr Header
	buf := make([]byte, 1500)
	if _, err := d.Receive(&hdr, buf); !errors.Is(err, errGlitch) {
		t.Fatalf("got %v want glitch", err)
	}
	if d.nextFrame != rxStart || bus.Pending() != 1 || bus.Register(uint8(ERXTAIL)) != tail {
		t.Fatalf("state moved: next=%#04x pending=%d tail=%#04x",
			d.nextFrame, bus.Pending(), bus.Register(uint8(ERXTAIL)))
	}

	n, err := d.Receive(&hdr, buf)
	if err != nil || n != 100 {
		t.Fatalf("retry: n=%d err=%v", n, err)
	}
	if diff := cmp.Diff(payload, buf[:n]); diff != "" {
		t.Fatalf("payload (-want +got):\n%s", diff)
	}
	if bus.Pending() != 0 {
		t.Fatalf("pending got %d want 0", bus.Pending())
	}
}

func TestReceive_PacketDecrementRetried(t *testing.T) {
	d, bus := glitchDevice(t, Config{})
	first, second := pattern(100, 5), pattern(120, 6)
	bus.Inject(frameTo(simchip.DefaultMAC, peerMAC, first))
	bus.Inject(frameTo(simchip.DefaultMAC, peerMAC, second))

	bus.arm(0, byte(opSETPKTDEC))
	var hdr Header
	buf := make([]byte, 1500)
	n, err := d.Receive(&hdr, buf)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if diff := cmp.Diff(first, buf[:n]); diff != "" {
		t.Fatalf("first frame (-want +got):\n%s", diff)
	}
	if bus.Pending() != 2 {
		t.Fatalf("chip pending got %d want 2 before the retry", bus.Pending())
	}

	if got, err := d.PendingCount(); err != nil || got != 1 {
		t.Fatalf("PendingCount got %d, %v; want 1", got, err)
	}
	n, err = d.Receive(&hdr, buf)
	if err != nil {
		t.Fatalf("second Receive: %v", err)
	}
	if diff := cmp.Diff(second, buf[:n]); diff != "" {
		t.Fatalf("second frame (-want +got):\n%s", diff)
	}
	if _, err := d.Receive(&hdr, buf); !errors.Is(err, ErrNoPendingFrame) {
		t.Fatalf("third Receive got %v want ErrNoPendingFrame", err)
	}
}
