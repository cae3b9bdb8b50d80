package logger

import (
	"classhub_backend/internal/config"

	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap/zapcore"
)

// rollbarCore forwards error-level entries to Rollbar.
type rollbarCore struct {
	fields []zapcore.Field
}

func newRollbarCore(cfg config.RollbarConfig) zapcore.Core {
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetServerRoot("classhub_backend")
	return &rollbarCore{}
}

func (c *rollbarCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= zapcore.ErrorLevel
}

func (c *rollbarCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &rollbarCore{fields: merged}
}

func (c *rollbarCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *rollbarCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	enc.Fields["caller"] = ent.Caller.TrimmedPath()

	if ent.Level >= zapcore.DPanicLevel {
		rollbar.Critical(ent.Message, enc.Fields)
		return nil
	}
	rollbar.Error(ent.Message, enc.Fields)
	return nil
}

func (c *rollbarCore) Sync() error {
	rollbar.Wait()
	return nil
}
