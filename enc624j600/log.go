// enc624j600/log.go

package enc624j600

import (
	"context"
	"log/slog"
)

func (d *Device) debug(msg string, attrs ...slog.Attr) {
	if d.log == nil {
		return
	}
	d.log.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}

func (d *Device) info(msg string, attrs ...slog.Attr) {
	if d.log == nil {
		return
	}
	d.log.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

func attrStage(s Stage) slog.Attr         { return slog.String("stage", s.String()) }
func attrErr(err error) slog.Attr          { return slog.String("err", err.Error()) }
func attrU16(k string, v uint16) slog.Attr { return slog.Uint64(k, uint64(v)) }
