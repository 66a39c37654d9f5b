package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/pkg/requestid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StructuredLogger produces operation scoped loggers for a component.
type StructuredLogger struct {
	name string
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *OperationBuilder {
	b := &OperationBuilder{name: l.name}
	if id := requestid.FromContext(ctx); id != "" {
		b.fields = append(b.fields, zap.String("request_id", id))
	}
	return b
}

type OperationBuilder struct {
	name      string
	operation string
	fields    []zapcore.Field
}

func (b *OperationBuilder) Operation(op string) *OperationBuilder {
	b.operation = op
	return b
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, zap.Int(key, value))
	return b
}

func (b *OperationBuilder) WithInt64(key string, value int64) *OperationBuilder {
	b.fields = append(b.fields, zap.Int64(key, value))
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	fields := make([]zapcore.Field, 0, len(b.fields)+1)
	if b.operation != "" {
		fields = append(fields, zap.String("operation", b.operation))
	}
	fields = append(fields, b.fields...)
	return &OperationTracer{
		logger: zap.L().Named(b.name).With(fields...),
		start:  time.Now(),
	}
}

// OperationTracer logs the steps of one operation with shared fields.
type OperationTracer struct {
	logger *zap.Logger
	start  time.Time
}

func (t *OperationTracer) Step(name string) *Entry {
	return &Entry{logger: t.logger, level: zapcore.DebugLevel, msg: "step", fields: []zapcore.Field{zap.String("step", name)}}
}

func (t *OperationTracer) Error(err error) *Entry {
	return &Entry{logger: t.logger, level: zapcore.ErrorLevel, msg: "operation failed", fields: []zapcore.Field{zap.Error(err)}}
}

func (t *OperationTracer) Success() *Entry {
	return &Entry{logger: t.logger, level: zapcore.DebugLevel, msg: "operation succeeded", fields: []zapcore.Field{zap.Duration("elapsed", time.Since(t.start))}}
}

type Entry struct {
	logger *zap.Logger
	level  zapcore.Level
	msg    string
	fields []zapcore.Field
}

func (e *Entry) WithString(key, value string) *Entry {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *Entry) WithInt(key string, value int) *Entry {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *Entry) WithInt64(key string, value int64) *Entry {
	e.fields = append(e.fields, zap.Int64(key, value))
	return e
}

func (e *Entry) WithBool(key string, value bool) *Entry {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *Entry) WithUUID(key string, value uuid.UUID) *Entry {
	e.fields = append(e.fields, zap.String(key, value.String()))
	return e
}

func (e *Entry) WithParam(key string, value any) *Entry {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *Entry) Log() {
	if ce := e.logger.Check(e.level, e.msg); ce != nil {
		ce.Write(e.fields...)
	}
}
