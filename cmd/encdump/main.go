//go:build linux

// Command encdump brings an ENC624J600 up through a Linux spidev node and
// logs every frame it receives.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/mdlayher/ethernet"
	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/jangala-dev/tinygo-enc624j600/enc624j600"
	"github.com/jangala-dev/tinygo-enc624j600/netif"
	"github.com/jangala-dev/tinygo-enc624j600/spidev"
)

func main() {
	var (
		dev      = flag.StringP("device", "d", "/dev/spidev0.0", "spidev node the chip is on")
		speed    = flag.Uint32("speed", 14_000_000, "SPI clock in Hz")
		count    = flag.IntP("count", "c", 0, "exit after this many frames (0 = run until interrupted)")
		interval = flag.Duration("interval", time.Millisecond, "poll interval")
		promisc  = flag.Bool("promisc", false, "accept frames for any station and all multicast")
		mac      = flag.String("mac", "", "station address to use instead of the factory one")
		hexdump  = flag.Bool("x", false, "log payload bytes")
		verbose  = flag.BoolP("verbose", "v", false, "log driver bring-up and polling")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := options{dev: *dev, speed: *speed, count: *count, interval: *interval,
		promisc: *promisc, mac: *mac, hexdump: *hexdump}
	if err := run(ctx, log, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("encdump failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	dev      string
	speed    uint32
	count    int
	interval time.Duration
	promisc  bool
	mac      string
	hexdump  bool
}

func run(ctx context.Context, log *slog.Logger, o options) (err error) {
	cfg := enc624j600.Config{
		Poller: enc624j600.BackoffPoller{Max: 5 * time.Millisecond},
		Logger: log,
	}
	if o.mac != "" {
		hw, err := parseMAC(o.mac)
		if err != nil {
			return err
		}
		cfg.HardwareAddr = hw
	}

	bus, err := spidev.Open(o.dev, spidev.Config{SpeedHz: o.speed})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, bus.Close()) }()

	d := enc624j600.New(bus, spidev.NoCS{}, nil)
	if err := d.Configure(cfg); err != nil {
		return fmt.Errorf("bring-up: %w", err)
	}
	if o.promisc {
		for _, f := range []enc624j600.Filter{enc624j600.NotMeUnicastCollection, enc624j600.MulticastCollection} {
			err = multierr.Append(err, d.ConfigureFilter(f, true))
		}
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	seen := 0
	ifc := netif.New(d, netif.Config{
		Logger: log,
		OnLinkChange: func(up bool) {
			log.Info("link", "up", up, "duplex", d.Duplex().String())
		},
		Handler: func(f *ethernet.Frame) {
			seen++
			attrs := []any{
				"n", seen,
				"src", f.Source.String(),
				"dst", f.Destination.String(),
				"type", fmt.Sprintf("%#04x", uint16(f.EtherType)),
				"len", len(f.Payload),
			}
			if f.VLAN != nil {
				attrs = append(attrs, "vlan", f.VLAN.ID)
			}
			if o.hexdump {
				attrs = append(attrs, "payload", fmt.Sprintf("% x", f.Payload))
			}
			log.Info("frame", attrs...)
			if o.count > 0 && seen >= o.count {
				cancel()
			}
		},
	})
	log.Info("listening", "device", o.dev, "mac", ifc.HardwareAddr().String())

	err = ifc.Run(ctx, o.interval)
	st := ifc.Stats()
	log.Info("stopped", "frames", st.RxFrames, "dropped", st.RxDropped, "errors", st.RxErrors)
	if o.count > 0 && seen >= o.count {
		return nil
	}
	return err
}

func parseMAC(s string) ([]byte, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return nil, err
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("station address %q is not EUI-48", s)
	}
	return hw, nil
}
