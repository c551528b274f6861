// enc624j600/poller.go

package enc624j600

import (
	"strconv"
	"time"

	"github.com/jpillora/backoff"
)

// Stage names a hardware condition the driver waits on.
type Stage uint8

const (
	StageSPIAlive Stage = iota
	StageClockReady
	StageReset
	StagePHYBusy
	StageTransmit
	StageLink
)

func (s Stage) String() string {
	switch s {
	case StageSPIAlive:
		return "spi-alive"
	case StageClockReady:
		return "clock-ready"
	case StageReset:
		return "reset"
	case StagePHYBusy:
		return "phy-busy"
	case StageTransmit:
		return "transmit"
	case StageLink:
		return "link"
	}
	return "stage(" + strconv.Itoa(int(s)) + ")"
}

// Poller decides how long the driver keeps re-checking a hardware condition.
// Poll calls done until it reports true or returns an error.
type Poller interface {
	Poll(stage Stage, done func() (bool, error)) error
}

// BusyPoller spins without bound. A chip that never reaches the condition
// blocks the caller forever, as on bare metal without a watchdog.
type BusyPoller struct{}

func (BusyPoller) Poll(_ Stage, done func() (bool, error)) error {
	for {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
}

// BoundedPoller gives up with ErrPollLimit after Limit unsuccessful checks.
type BoundedPoller struct {
	Limit int
}

func (p BoundedPoller) Poll(_ Stage, done func() (bool, error)) error {
	for i := 0; i < p.Limit; i++ {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrPollLimit
}

// BackoffPoller sleeps between checks with an exponential backoff. Attempts
// caps the number of checks; zero means unbounded. Suited to hosts driving
// the chip through spidev, where a spin would burn a core.
type BackoffPoller struct {
	Min, Max time.Duration
	Attempts int
}

func (p BackoffPoller) Poll(_ Stage, done func() (bool, error)) error {
	b := &backoff.Backoff{Min: p.Min, Max: p.Max, Factor: 2}
	if b.Min == 0 {
		b.Min = 10 * time.Microsecond
	}
	if b.Max == 0 {
		b.Max = 10 * time.Millisecond
	}
	for p.Attempts == 0 || int(b.Attempt()) < p.Attempts {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		time.Sleep(b.Duration())
	}
	return ErrPollLimit
}

// wait runs the configured poller and tags failures with the stage.
func (d *Device) wait(stage Stage, done func() (bool, error)) error {
	if err := d.poller.Poll(stage, done); err != nil {
		d.debug("poll failed", attrStage(stage), attrErr(err))
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

// StageError reports which hardware wait failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return "enc624j600: " + e.Stage.String() + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }
