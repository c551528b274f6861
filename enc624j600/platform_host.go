// enc624j600/platform_host.go

//go:build !tinygo

package enc624j600

import (
	"sync"
	"time"
)

// Host shim: a mutex stands in for interrupt masking. Not reentrant.
type hostPlatform struct {
	mu sync.Mutex
}

var defaultPlatform hostPlatform

// DefaultPlatform serialises critical sections with a mutex and delays with
// time.Sleep.
func DefaultPlatform() Platform { return &defaultPlatform }

func (p *hostPlatform) DelayMicroseconds(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (p *hostPlatform) EnterCritical() { p.mu.Lock() }
func (p *hostPlatform) ExitCritical()  { p.mu.Unlock() }
