//go:build encdebug

package enc624j600

import "sync/atomic"

func (d *Device) dbgTransaction(int) {
	atomic.AddUint32(&d.stats.Transactions, 1)
}

func (d *Device) dbgWindowRead(n int) {
	atomic.AddUint32(&d.stats.WindowRead, uint32(n))
}

func (d *Device) dbgWindowWrite(n int) {
	atomic.AddUint32(&d.stats.WindowWrite, uint32(n))
}

func (d *Device) dbgTxFrame(n int) {
	atomic.AddUint32(&d.stats.TxFrames, 1)
	atomic.AddUint32(&d.stats.TxBytes, uint32(n))
}

func (d *Device) dbgTxFailed() { atomic.AddUint32(&d.stats.TxFailed, 1) }

func (d *Device) dbgRxFrame(n int) {
	atomic.AddUint32(&d.stats.RxFrames, 1)
	atomic.AddUint32(&d.stats.RxBytes, uint32(n))
}

func (d *Device) dbgRxDropped()  { atomic.AddUint32(&d.stats.RxDropped, 1) }
func (d *Device) dbgRxTooSmall() { atomic.AddUint32(&d.stats.RxTooSmall, 1) }
func (d *Device) dbgIRQ()        { atomic.AddUint32(&d.stats.IRQs, 1) }
func (d *Device) dbgLinkChange() { atomic.AddUint32(&d.stats.LinkChanges, 1) }
func (d *Device) dbgReset()      { atomic.AddUint32(&d.stats.Resets, 1) }
