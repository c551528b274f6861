package enc624j600

import (
	"errors"
	"testing"
	"time"
)

// countdown reports done after n unsuccessful checks.
func countdown(n int, calls *int) func() (bool, error) {
	return func() (bool, error) {
		*calls++
		return *calls > n, nil
	}
}

func TestBusyPoller(t *testing.T) {
	calls := 0
	if err := (BusyPoller{}).Poll(StageReset, countdown(1000, &calls)); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if calls != 1001 {
		t.Fatalf("calls got %d want 1001", calls)
	}
}

func TestBoundedPoller(t *testing.T) {
	calls := 0
	p := BoundedPoller{Limit: 5}
	if err := p.Poll(StageReset, countdown(4, &calls)); err != nil {
		t.Fatalf("within limit: %v", err)
	}
	calls = 0
	if err := p.Poll(StageReset, countdown(5, &calls)); !errors.Is(err, ErrPollLimit) {
		t.Fatalf("over limit got %v want ErrPollLimit", err)
	}
	if calls != 5 {
		t.Fatalf("calls got %d want 5", calls)
	}
}

func TestBackoffPoller(t *testing.T) {
	calls := 0
	p := BackoffPoller{Min: time.Microsecond, Max: 50 * time.Microsecond, Attempts: 3}
	if err := p.Poll(StageLink, countdown(10, &calls)); !errors.Is(err, ErrPollLimit) {
		t.Fatalf("got %v want ErrPollLimit", err)
	}
	if calls != 3 {
		t.Fatalf("calls got %d want 3", calls)
	}

	calls = 0
	p.Attempts = 0
	if err := p.Poll(StageLink, countdown(6, &calls)); err != nil {
		t.Fatalf("unbounded: %v", err)
	}
	if calls != 7 {
		t.Fatalf("calls got %d want 7", calls)
	}
}

func TestPoller_CheckErrorStops(t *testing.T) {
	boom := errors.New("boom")
	pollers := map[string]Poller{
		"busy":    BusyPoller{},
		"bounded": BoundedPoller{Limit: 10},
		"backoff": BackoffPoller{Min: time.Microsecond},
	}
	for name, p := range pollers {
		calls := 0
		err := p.Poll(StageTransmit, func() (bool, error) {
			calls++
			return false, boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Errorf("%s: got %v after %d calls", name, err, calls)
		}
	}
}

func TestDeviceWait_WrapsStage(t *testing.T) {
	d := &Device{poller: BoundedPoller{Limit: 2}}
	err := d.wait(StageClockReady, func() (bool, error) { return false, nil })
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageClockReady {
		t.Fatalf("got %v want clock-ready StageError", err)
	}
	if got, want := err.Error(), "enc624j600: clock-ready: "+ErrPollLimit.Error(); got != want {
		t.Fatalf("message got %q want %q", got, want)
	}
}

func TestStage_String(t *testing.T) {
	cases := map[Stage]string{
		StageSPIAlive:   "spi-alive",
		StageClockReady: "clock-ready",
		StageReset:      "reset",
		StagePHYBusy:    "phy-busy",
		StageTransmit:   "transmit",
		StageLink:       "link",
		Stage(42):       "stage(42)",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("got %q want %q", got, want)
		}
	}
}
