package logger

import (
	"fmt"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset  = "\x1b[0m"
	colorYellow = "\x1b[38;5;214m"
	colorRed    = "\x1b[38;5;167m"
	colorGray   = "\x1b[38;5;245m"
)

var bufferPool = buffer.NewPool()

// minimalEncoder renders log entries as calm single lines:
//
//	15:04:05  Processing order  order_number=1234 customer=John_Doe
//
// Warnings and errors get a colored level tag; info entries get none.
// Structured fields are appended as key=value pairs in call order.
type minimalEncoder struct {
	zapcore.Encoder
	color bool
}

func newMinimalEncoder(color bool) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:     "ts",
		EncodeTime:  zapcore.TimeEncoderOfLayout("15:04:05"),
		LineEnding:  zapcore.DefaultLineEnding,
		MessageKey:  "msg",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	return &minimalEncoder{Encoder: zapcore.NewConsoleEncoder(cfg), color: color}
}

func (e *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: e.Encoder.Clone(), color: e.color}
}

func (e *minimalEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := bufferPool.Get()

	line.AppendString(entry.Time.Format("15:04:05"))
	line.AppendString("  ")

	switch entry.Level {
	case zapcore.WarnLevel:
		e.appendColored(line, "WARN  ", colorYellow)
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		e.appendColored(line, "ERROR ", colorRed)
	}

	line.AppendString(entry.Message)

	// Append structured fields as key=value pairs
	if len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
		}
		for _, f := range fields {
			v, ok := enc.Fields[f.Key]
			if !ok {
				continue
			}
			if e.color {
				line.AppendString(fmt.Sprintf("  %s%s=%v%s", colorGray, f.Key, v, colorReset))
			} else {
				line.AppendString(fmt.Sprintf("  %s=%v", f.Key, v))
			}
		}
	}

	line.AppendString(zapcore.DefaultLineEnding)
	return line, nil
}

func (e *minimalEncoder) appendColored(line *buffer.Buffer, tag, color string) {
	if e.color {
		line.AppendString(color)
		line.AppendString(tag)
		line.AppendString(colorReset)
	} else {
		line.AppendString(tag)
	}
}
