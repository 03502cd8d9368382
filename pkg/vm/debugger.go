package vm

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sparkling-lang/sparkling/pkg/bytecode"
)

// Tracer is the VM's optional execution observer, generalized from the
// teacher's interactive breakpoint/step debugger into a structured
// logging sink: instead of pausing execution, it emits one debug-level
// event per script-function CALL and per RET when tracing is enabled;
// calls to native functions are not traced.
type Tracer struct {
	logger  zerolog.Logger
	traceID uuid.UUID
	enabled bool
}

// NewTracer builds a Tracer bound to a fresh per-execution trace ID,
// attached to every event it logs so a host embedding multiple
// concurrent VM instances can correlate a trace back to one execution.
func NewTracer(logger zerolog.Logger, enabled bool) *Tracer {
	return &Tracer{logger: logger, traceID: uuid.New(), enabled: enabled}
}

func (t *Tracer) traceCall(fr *frame, callee *bytecode.FuncProto) {
	if t == nil || !t.enabled {
		return
	}
	t.logger.Debug().
		Str("trace_id", t.traceID.String()).
		Str("event", "call").
		Str("callee", callee.Name).
		Int("argc", callee.Argc).
		Int("ip", fr.ip).
		Msg("call")
}

func (t *Tracer) traceReturn(fr *frame) {
	if t == nil || !t.enabled {
		return
	}
	t.logger.Debug().
		Str("trace_id", t.traceID.String()).
		Str("event", "ret").
		Str("func", fr.proto.Name).
		Int("ip", fr.ip).
		Msg("ret")
}

func (t *Tracer) traceError(err error) {
	if t == nil || !t.enabled {
		return
	}
	t.logger.Debug().
		Str("trace_id", t.traceID.String()).
		Str("event", "error").
		Err(err).
		Msg("runtime error")
}
