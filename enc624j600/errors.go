// enc624j600/errors.go

package enc624j600

import (
	"errors"
	"strconv"
)

var (
	ErrInvalidArgument = errors.New("enc624j600: invalid argument")
	ErrFrameTooSmall   = errors.New("enc624j600: payload shorter than 8 bytes")
	ErrFrameExceedsMTU = errors.New("enc624j600: payload longer than 1500 bytes")
	ErrTransmitFailed  = errors.New("enc624j600: transmit failed")
	ErrNoPendingFrame  = errors.New("enc624j600: no pending frame")
	ErrBufferTooSmall  = errors.New("enc624j600: buffer too small for frame")
	ErrMalformedFrame  = errors.New("enc624j600: malformed receive status vector")
	ErrPollLimit       = errors.New("enc624j600: poll limit reached")
	ErrUnsupported     = errors.New("enc624j600: unsupported")
	ErrNotConfigured   = errors.New("enc624j600: device not configured")
)

// TransmitError describes a transmission the chip reported as failed.
// It matches ErrTransmitFailed under errors.Is.
type TransmitError struct {
	Duplex Duplex
	Status uint16 // ETXSTAT
	Wire   uint16 // ETXWIRE
	Want   uint16 // expected ETXWIRE, full duplex only
}

func (e *TransmitError) Error() string {
	if e.Duplex == FullDuplex {
		return "enc624j600: transmit failed: wire count " + strconv.Itoa(int(e.Wire)) +
			", want " + strconv.Itoa(int(e.Want))
	}
	return "enc624j600: transmit failed: status 0x" + strconv.FormatUint(uint64(e.Status), 16)
}

func (e *TransmitError) Unwrap() error { return ErrTransmitFailed }
