package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"UD_referral_bot/internal/model"
	"UD_referral_bot/internal/notifier"
	"UD_referral_bot/pkg/logger"

	"go.uber.org/zap"
)

type logEventSink struct {
	log *zap.Logger
}

// NewLogEventSink writes events through zap. A nil logger means the process logger.
func NewLogEventSink(log *zap.Logger) EventSink {
	return &logEventSink{log: log}
}

func (s *logEventSink) Emit(_ context.Context, event model.Event) {
	log := s.log
	if log == nil {
		log = logger.Named("events")
	}

	keys := make([]string, 0, len(event.Keys))
	for k := range event.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys)+4)
	fields = append(fields,
		zap.String("operation", event.Operation),
		zap.String("outcome", event.Outcome),
		zap.Duration("duration", event.Duration),
	)
	for _, k := range keys {
		fields = append(fields, zap.String(k, event.Keys[k]))
	}

	switch {
	case event.Err == nil:
		log.Info("operation completed", fields...)
	case errors.Is(event.Err, notifier.ErrRecipientUnreachable):
		log.Debug("operation completed", append(fields, zap.Error(event.Err))...)
	default:
		log.Error("operation failed", append(fields, zap.Error(event.Err))...)
	}
}

func sinkOrDefault(events EventSink) EventSink {
	if events == nil {
		return NewLogEventSink(nil)
	}
	return events
}

// operation measures one public call and emits its event when finished.
type operation struct {
	sink    EventSink
	name    string
	keys    map[string]string
	started time.Time
}

func begin(sink EventSink, name string, keys map[string]string) *operation {
	return &operation{
		sink:    sink,
		name:    name,
		keys:    keys,
		started: time.Now(),
	}
}

func (o *operation) end(ctx context.Context, outcome string, err error) {
	o.sink.Emit(ctx, model.Event{
		Operation: o.name,
		Keys:      o.keys,
		Outcome:   outcome,
		Err:       err,
		Duration:  time.Since(o.started),
	})
}
