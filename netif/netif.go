// netif/netif.go

// Package netif adapts an ENC624J600 to a frame-level network interface:
// whole Ethernet frames in and out as *ethernet.Frame, link edge callbacks
// and a poll loop that dispatches received frames to a handler.
package netif

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mdlayher/ethernet"

	"github.com/jangala-dev/tinygo-enc624j600/enc624j600"
)

const (
	// MTU is the largest payload carried without VLAN tags.
	MTU = 1500
	// MaxFrameSize is a full untagged frame without FCS.
	MaxFrameSize = 14 + MTU

	// pollBatch bounds the frames handed out by one Poll.
	pollBatch = 8
)

var ErrLinkDown = errors.New("netif: link down")

// NIC is the part of *enc624j600.Device the interface drives.
type NIC interface {
	WriteFrame(frame []byte) error
	ReadFrame(frame []byte) (int, error)
	DropFrame() error
	PendingFrame() (bool, error)
	LinkStatus() (bool, error)
	Pump() (enc624j600.Event, error)
	HardwareAddr() [6]byte
}

// Config tunes an Interface. The zero value is usable.
type Config struct {
	// IgnoreLink sends and receives regardless of PHY link state. Needed in
	// MAC or PHY loopback, where the link never comes up.
	IgnoreLink bool
	// OnLinkChange runs on every link edge seen by Poll.
	OnLinkChange func(up bool)
	// Handler receives each frame read by Poll. It may call WriteFrame.
	Handler func(f *ethernet.Frame)
	Logger  *slog.Logger
}

// Stats counts frames moved through the interface.
type Stats struct {
	TxFrames  uint64
	TxErrors  uint64
	RxFrames  uint64
	RxDropped uint64
	RxErrors  uint64
}

// Interface serialises frame I/O on a NIC for use from several goroutines.
type Interface struct {
	mu    sync.Mutex
	nic   NIC
	cfg   Config
	link  bool
	buf   [MaxFrameSize + 4]byte // room for one VLAN tag
	stats Stats
}

// New wraps a configured NIC.
func New(nic NIC, cfg Config) *Interface {
	return &Interface{nic: nic, cfg: cfg}
}

// HardwareAddr returns the station address of the NIC.
func (ifc *Interface) HardwareAddr() net.HardwareAddr {
	mac := ifc.nic.HardwareAddr()
	return net.HardwareAddr(mac[:])
}

// Up reports the link state as of the last Poll.
func (ifc *Interface) Up() bool {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	return ifc.link
}

// Stats returns a snapshot of the interface counters.
func (ifc *Interface) Stats() Stats {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	return ifc.stats
}

// WriteFrame transmits f. The source address is always the NIC's; a nil
// Source is filled in for the caller.
func (ifc *Interface) WriteFrame(f *ethernet.Frame) error {
	if f.Source == nil {
		f.Source = ifc.HardwareAddr()
	}
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	if !ifc.link && !ifc.cfg.IgnoreLink {
		return ErrLinkDown
	}
	if err := ifc.nic.WriteFrame(b); err != nil {
		ifc.stats.TxErrors++
		ifc.debug("transmit failed", slog.Int("len", len(b)), slog.String("err", err.Error()))
		return err
	}
	ifc.stats.TxFrames++
	return nil
}

// Poll services the NIC once. A link edge is reported through OnLinkChange
// and ends the round; otherwise up to a batch of pending frames is read and
// passed to Handler. Poll returns the number of frames delivered.
func (ifc *Interface) Poll() (int, error) {
	frames, edge, err := ifc.poll()
	if edge != nil && ifc.cfg.OnLinkChange != nil {
		ifc.cfg.OnLinkChange(*edge)
	}
	if ifc.cfg.Handler != nil {
		for _, f := range frames {
			ifc.cfg.Handler(f)
		}
	}
	return len(frames), err
}

func (ifc *Interface) poll() (frames []*ethernet.Frame, edge *bool, err error) {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()

	if _, err := ifc.nic.Pump(); err != nil {
		return nil, nil, err
	}
	up, err := ifc.nic.LinkStatus()
	if err != nil {
		return nil, nil, err
	}
	if up != ifc.link {
		ifc.link = up
		ifc.info("link", slog.Bool("up", up))
		return nil, &up, nil
	}
	if !up && !ifc.cfg.IgnoreLink {
		return nil, nil, nil
	}

	for len(frames) < pollBatch {
		ok, err := ifc.nic.PendingFrame()
		if err != nil || !ok {
			return frames, nil, err
		}
		n, err := ifc.nic.ReadFrame(ifc.buf[:])
		switch {
		case errors.Is(err, enc624j600.ErrBufferTooSmall):
			ifc.stats.RxDropped++
			ifc.debug("oversized frame dropped")
			if err := ifc.nic.DropFrame(); err != nil {
				return frames, nil, err
			}
			continue
		case err != nil:
			ifc.stats.RxErrors++
			return frames, nil, err
		}
		f := new(ethernet.Frame)
		if err := f.UnmarshalBinary(ifc.buf[:n]); err != nil {
			ifc.stats.RxErrors++
			ifc.debug("bad frame", slog.Int("len", n), slog.String("err", err.Error()))
			continue
		}
		ifc.stats.RxFrames++
		frames = append(frames, f)
	}
	return frames, nil, nil
}

// Run polls every interval until ctx is done, returning ctx.Err(). Poll
// errors are logged and polling continues.
func (ifc *Interface) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := ifc.Poll(); err != nil {
			ifc.info("poll failed", slog.String("err", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (ifc *Interface) debug(msg string, attrs ...slog.Attr) {
	if ifc.cfg.Logger != nil {
		ifc.cfg.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}

func (ifc *Interface) info(msg string, attrs ...slog.Attr) {
	if ifc.cfg.Logger != nil {
		ifc.cfg.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
	}
}
