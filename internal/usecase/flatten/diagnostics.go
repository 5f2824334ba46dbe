package flatten

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// LogDiagnostics reports flattening events to the log and to Prometheus.
type LogDiagnostics struct {
	logger       *zap.Logger
	unknownTotal *prometheus.CounterVec
}

// NewLogDiagnostics creates a Diagnostics sink.
// unknownTotal is a counter vec with label "kind", passed explicitly; it may be nil.
func NewLogDiagnostics(logger *zap.Logger, unknownTotal *prometheus.CounterVec) *LogDiagnostics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDiagnostics{logger: logger, unknownTotal: unknownTotal}
}

// UnknownAggregation implements Diagnostics.
func (d *LogDiagnostics) UnknownAggregation(name, kind string) {
	d.logger.Warn("Unknown aggregation kind, omitted from output",
		zap.String("aggregation", name),
		zap.String("kind", kind),
	)
	if d.unknownTotal != nil {
		d.unknownTotal.WithLabelValues(kind).Inc()
	}
}
