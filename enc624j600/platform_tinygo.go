// enc624j600/platform_tinygo.go

//go:build tinygo

package enc624j600

import (
	"runtime/interrupt"
	"time"
)

// irqPlatform masks interrupts for critical sections. Nested entries restore
// the outermost saved state on the final exit.
type irqPlatform struct {
	saved interrupt.State
	depth uint8
}

var defaultPlatform irqPlatform

// DefaultPlatform masks interrupts with runtime/interrupt and delays with
// time.Sleep.
func DefaultPlatform() Platform { return &defaultPlatform }

func (p *irqPlatform) DelayMicroseconds(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (p *irqPlatform) EnterCritical() {
	s := interrupt.Disable()
	if p.depth == 0 {
		p.saved = s
	}
	p.depth++
}

func (p *irqPlatform) ExitCritical() {
	p.depth--
	if p.depth == 0 {
		interrupt.Restore(p.saved)
	}
}
