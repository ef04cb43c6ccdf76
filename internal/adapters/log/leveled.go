// Package log adapts pkg/log loggers to the logging interfaces of
// third-party clients.
package log

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"

	plog "github.com/bft-labs/snapmerge/pkg/log"
)

// Leveled implements retryablehttp.LeveledLogger on top of a plog.Logger.
type Leveled struct {
	logger plog.Logger
}

var _ retryablehttp.LeveledLogger = (*Leveled)(nil)

// NewLeveled wraps logger. A nil logger discards everything.
func NewLeveled(logger plog.Logger) *Leveled {
	if logger == nil {
		logger = plog.NoopLogger{}
	}
	return &Leveled{logger: logger.With(plog.Component("http"))}
}

func (l *Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues)...)
}

func (l *Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fields(keysAndValues)...)
}

// Debug also carries the per-attempt request lines retryablehttp emits.
func (l *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues)...)
}

// fields pairs up alternating keys and values. A trailing key without a
// value is kept under "extra".
func fields(kv []interface{}) []plog.Field {
	out := make([]plog.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			out = append(out, plog.Any("extra", kv[i]))
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if err, isErr := kv[i+1].(error); isErr {
			out = append(out, plog.Field{Key: key, Value: err})
			continue
		}
		out = append(out, plog.Any(key, kv[i+1]))
	}
	return out
}
