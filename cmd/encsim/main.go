// Command encsim runs two ENC624J600 drivers against simulated chips wired
// back to back and checks that frames cross intact in both directions.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/mdlayher/ethernet"
	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/jangala-dev/tinygo-enc624j600/enc624j600"
	"github.com/jangala-dev/tinygo-enc624j600/enc624j600/simchip"
	"github.com/jangala-dev/tinygo-enc624j600/netif"
)

var peerMAC = [6]byte{0x02, 0x00, 0x5E, 0x10, 0x20, 0x30}

type options struct {
	frames     int
	seed       int64
	interrupts bool
	halfDuplex bool
	flapEvery  int
	timeout    time.Duration
}

func main() {
	var o options
	flag.IntVarP(&o.frames, "frames", "n", 1000, "frames to send each way")
	flag.Int64Var(&o.seed, "seed", 1, "payload generator seed")
	flag.BoolVar(&o.interrupts, "interrupts", false, "drive both chips in interrupt mode")
	flag.BoolVar(&o.halfDuplex, "half", false, "negotiate half duplex")
	flag.IntVar(&o.flapEvery, "flap", 0, "drop and restore the link every N frames (0 = never)")
	flag.DurationVar(&o.timeout, "timeout", 30*time.Second, "give up after this long")
	verbose := flag.BoolP("verbose", "v", false, "log driver activity")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	res, err := run(ctx, log, o)
	log.Info("done", "sent", res.sent, "received", res.received, "flaps", res.flaps)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			log.Error("check failed", "err", e)
		}
		os.Exit(1)
	}
}

// station is one simulated chip with its driver and interface.
type station struct {
	name string
	chip *simchip.Chip
	ifc  *netif.Interface
	got  [][]byte
}

func newStation(name string, mac [6]byte, o options, log *slog.Logger) (*station, error) {
	s := &station{name: name, chip: simchip.New(mac)}
	s.chip.SetFullDuplex(!o.halfDuplex)
	d := enc624j600.New(s.chip, s.chip.CS(), s.chip)
	if o.interrupts {
		s.chip.OnIRQ = d.SignalIRQ
	}
	err := d.Configure(enc624j600.Config{
		Interrupts: o.interrupts,
		Poller:     enc624j600.BoundedPoller{Limit: 1000},
		Logger:     log.With("station", name),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s.ifc = netif.New(d, netif.Config{
		Logger: log.With("station", name),
		Handler: func(f *ethernet.Frame) {
			s.got = append(s.got, f.Payload)
		},
	})
	return s, nil
}

type result struct {
	sent, received, flaps int
}

func run(ctx context.Context, log *slog.Logger, o options) (result, error) {
	var res result
	a, err := newStation("a", simchip.DefaultMAC, o, log)
	if err != nil {
		return res, err
	}
	b, err := newStation("b", peerMAC, o, log)
	if err != nil {
		return res, err
	}
	simchip.Connect(a.chip, b.chip)
	for _, s := range []*station{a, b} {
		if err := waitUp(ctx, s); err != nil {
			return res, err
		}
	}

	rng := rand.New(rand.NewSource(o.seed))
	var want [2][][]byte
	pairs := [2][2]*station{{a, b}, {b, a}}
	for i := 0; i < o.frames; i++ {
		if o.flapEvery > 0 && i > 0 && i%o.flapEvery == 0 {
			if err := flap(ctx, a, b); err != nil {
				return res, err
			}
			res.flaps++
		}
		for dir, p := range pairs {
			from, to := p[0], p[1]
			payload := make([]byte, 46+rng.Intn(netif.MTU-46+1))
			rng.Read(payload)
			f := &ethernet.Frame{
				Destination: to.ifc.HardwareAddr(),
				EtherType:   ethernet.EtherTypeIPv4,
				Payload:     payload,
			}
			if err := from.ifc.WriteFrame(f); err != nil {
				return res, fmt.Errorf("%s frame %d: %w", from.name, i, err)
			}
			want[dir] = append(want[dir], payload)
			res.sent++
		}
		for _, s := range []*station{a, b} {
			if _, err := s.ifc.Poll(); err != nil {
				return res, fmt.Errorf("%s poll: %w", s.name, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
	for _, s := range []*station{a, b} {
		for {
			n, err := s.ifc.Poll()
			if err != nil {
				return res, err
			}
			if n == 0 {
				break
			}
		}
	}

	res.received = len(a.got) + len(b.got)
	err = multierr.Combine(compare("a->b", want[0], b.got), compare("b->a", want[1], a.got))
	return res, err
}

// compare collects every mismatch between sent and received payloads.
func compare(dir string, sent, got [][]byte) error {
	var err error
	if len(sent) != len(got) {
		err = multierr.Append(err, fmt.Errorf("%s: sent %d frames, received %d", dir, len(sent), len(got)))
	}
	for i := 0; i < min(len(sent), len(got)); i++ {
		if !bytes.Equal(sent[i], got[i]) {
			err = multierr.Append(err, fmt.Errorf("%s: frame %d differs (%d vs %d bytes)", dir, i, len(sent[i]), len(got[i])))
		}
	}
	return err
}

func waitUp(ctx context.Context, s *station) error {
	for !s.ifc.Up() {
		if _, err := s.ifc.Poll(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: waiting for link: %w", s.name, err)
		}
	}
	return nil
}

// flap takes the cable out and puts it back, letting both sides see each
// edge before traffic resumes.
func flap(ctx context.Context, stations ...*station) error {
	for _, up := range []bool{false, true} {
		for _, s := range stations {
			s.chip.SetLink(up)
			for s.ifc.Up() != up {
				if _, err := s.ifc.Poll(); err != nil {
					return err
				}
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
