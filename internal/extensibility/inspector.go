package extensibility

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/comalice/actorchart/internal/core"
)

// LoggingInspector writes every inspection to a structured logger. Errors
// are logged at error level, transitions and emits at info, the rest at
// debug.
type LoggingInspector struct {
	logger *slog.Logger
	inner  core.Inspector
}

// NewLoggingInspector logs to logger and then hands the inspection to inner,
// which may be nil.
func NewLoggingInspector(logger *slog.Logger, inner core.Inspector) *LoggingInspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingInspector{logger: logger, inner: inner}
}

func (i *LoggingInspector) Inspect(in core.Inspection) {
	attrs := []slog.Attr{slog.String("actor", in.ActorID)}
	level := slog.LevelDebug
	switch in.Kind {
	case core.InspectEvent:
		attrs = append(attrs, slog.String("event", in.Event.Type), slog.String("state", in.From))
	case core.InspectTransition:
		level = slog.LevelInfo
		attrs = append(attrs, slog.String("event", in.Event.Type), slog.String("from", in.From), slog.String("to", in.To))
	case core.InspectSnapshot:
		attrs = append(attrs, slog.String("state", in.Snapshot.State), slog.Any("context", in.Snapshot.Context))
	case core.InspectEmit:
		level = slog.LevelInfo
		attrs = append(attrs, slog.String("state", in.From), slog.Any("value", in.Value))
	case core.InspectError:
		level = slog.LevelError
		attrs = append(attrs, slog.Any("error", in.Err))
	case core.InspectSpawn:
		attrs = append(attrs, slog.String("child", in.To), slog.String("state", in.Snapshot.State))
	case core.InspectStop:
		attrs = append(attrs, slog.String("state", in.Snapshot.State))
	}
	i.logger.LogAttrs(context.Background(), level, string(in.Kind), attrs...)
	if i.inner != nil {
		i.inner.Inspect(in)
	}
}

// RecordingInspector keeps every inspection in memory.
type RecordingInspector struct {
	mu  sync.Mutex
	all []core.Inspection
}

func (r *RecordingInspector) Inspect(in core.Inspection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, in)
}

// Inspections returns what has been recorded, optionally only of the given kinds.
func (r *RecordingInspector) Inspections(kinds ...core.InspectionKind) []core.Inspection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(kinds) == 0 {
		return slices.Clone(r.all)
	}
	var out []core.Inspection
	for _, in := range r.all {
		if slices.Contains(kinds, in.Kind) {
			out = append(out, in)
		}
	}
	return out
}

// Transitions returns "from -> to" for every recorded transition.
func (r *RecordingInspector) Transitions() []string {
	var out []string
	for _, in := range r.Inspections(core.InspectTransition) {
		out = append(out, in.From+" -> "+in.To)
	}
	return out
}

// Reset drops everything recorded so far.
func (r *RecordingInspector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}

// Inspectors fans an inspection out to several inspectors in order.
type Inspectors []core.Inspector

func (is Inspectors) Inspect(in core.Inspection) {
	for _, i := range is {
		if i != nil {
			i.Inspect(in)
		}
	}
}
