package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/bastion/id"
)

// Sink receives audit entries. Engines treat sink failures as non-fatal.
type Sink interface {
	Record(ctx context.Context, e *Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e *Entry) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, e *Entry) error { return f(ctx, e) }

// prepare fills ID and timestamp when the caller left them empty.
func prepare(e *Entry) {
	if e.ID.IsNil() {
		e.ID = id.NewAuditID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}

// StoreSink persists entries through an audit Store.
type StoreSink struct {
	store Store
}

// NewStoreSink returns a sink writing to s.
func NewStoreSink(s Store) *StoreSink { return &StoreSink{store: s} }

// Record persists e.
func (s *StoreSink) Record(ctx context.Context, e *Entry) error {
	prepare(e)
	return s.store.CreateAuditEntry(ctx, e)
}

// LogSink writes entries as structured log records.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink returns a sink logging at Info. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: slog.LevelInfo}
}

// Record logs e.
func (s *LogSink) Record(ctx context.Context, e *Entry) error {
	prepare(e)
	s.logger.LogAttrs(ctx, s.level, "audit",
		slog.String("audit_id", e.ID.String()),
		slog.String("kind", string(e.Kind)),
		slog.String("actor_id", e.ActorID.String()),
		slog.String("subject_id", e.SubjectID.String()),
		slog.String("module", e.Module),
		slog.String("permission", e.Permission),
		slog.String("decision", e.Decision),
		slog.String("reason", e.Reason),
	)
	return nil
}

// Multi fans an entry out to every sink. All sinks are attempted; their
// errors are joined.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, e *Entry) error {
		prepare(e)
		var errs []error
		for _, s := range sinks {
			if err := s.Record(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Discard drops every entry.
var Discard Sink = SinkFunc(func(context.Context, *Entry) error { return nil })
