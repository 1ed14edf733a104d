package steps

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/askiada/go-process/pkg/frame"
	"github.com/askiada/go-process/pkg/process"
)

const maxLoggedLabels = 5

// LogStep logs the description of a reference. Tables and series also log a summary of their index.
type LogStep struct {
	name    string
	subject process.Describer
	level   zapcore.Level
	logger  *zap.Logger
}

type LogOption func(l *LogStep)

func LogLevel(level zapcore.Level) LogOption {
	return func(l *LogStep) {
		l.level = level
	}
}

func LogLogger(logger *zap.Logger) LogOption {
	return func(l *LogStep) {
		l.logger = logger
	}
}

// Log logs subject at info level by default.
func Log(name string, subject process.Describer, opts ...LogOption) *LogStep {
	l := &LogStep{name: name, subject: subject, level: zapcore.InfoLevel}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = zap.L()
	}

	return l
}

func (l *LogStep) Name() string {
	return l.name
}

func (l *LogStep) Do(context.Context) error {
	entry := l.logger.Check(l.level, "reference")
	if entry == nil {
		return nil
	}
	fields := []zap.Field{zap.String("step", l.name), zap.Stringer("reference", l.subject)}
	if index, ok := indexOf(l.subject); ok {
		fields = append(fields,
			zap.Int("index_levels", index.NLevels()),
			zap.Int("index_len", index.Len()),
			zap.Any("index_head", head(index.Labels(), maxLoggedLabels)),
		)
	}
	entry.Write(fields...)

	return nil
}

func indexOf(subject process.Describer) (frame.Index, bool) {
	switch src := subject.(type) {
	case process.Source[*frame.Table]:
		tbl, err := src.Get()
		if err != nil || tbl == nil {
			return frame.Index{}, false
		}

		return tbl.Index(), true
	case process.Source[frame.Series]:
		series, err := src.Get()
		if err != nil {
			return frame.Index{}, false
		}

		return series.Index, true
	default:
		return frame.Index{}, false
	}
}

func head(labels []any, n int) []any {
	if len(labels) <= n {
		return labels
	}

	return labels[:n]
}

var _ process.Step = (*LogStep)(nil)
