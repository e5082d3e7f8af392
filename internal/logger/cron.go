package logger

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// CronLogger adapts a Logger to cron.Logger. Scheduler chatter is logged at
// DEBUG; scheduler errors (including recovered panics) at ERROR.
type CronLogger struct {
	l *Logger
}

var _ cron.Logger = CronLogger{}

// ForCron wraps l for use with cron.WithLogger
func ForCron(l *Logger) CronLogger {
	return CronLogger{l: l}
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, pairs(keysAndValues))
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, pairs(keysAndValues), err)
}

// pairs folds alternating keys and values into Fields. A trailing key
// without a value is kept with a nil value.
func pairs(kv []interface{}) Fields {
	if len(kv) == 0 {
		return nil
	}
	f := make(Fields, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 < len(kv) {
			f[key] = kv[i+1]
		} else {
			f[key] = nil
		}
	}
	return f
}
