package itip

import (
	"context"
	"time"

	"libitip/metrics"
	"libitip/recurrence"
)

// Dispatcher selects the analyzer for an incoming message's method. A mail
// carrying the internal-notification marker is always routed to the
// internal analyzer regardless of method; with legacy scheduling enabled
// only legacy-capable analyzers are considered. A message no analyzer
// handles is logged and skipped, other messages of a batch are unaffected.
type Dispatcher struct {
	env       Environment
	analyzers []Analyzer
	internal  *internalAnalyzer
}

// NewDispatcher builds a dispatcher over the full analyzer table.
func NewDispatcher(env Environment) *Dispatcher {
	base := baseAnalyzer{env: env, recur: recurrence.NewEngine()}
	return &Dispatcher{
		env: env,
		analyzers: []Analyzer{
			&updateAnalyzer{base},
			&replyAnalyzer{base},
			&cancelAnalyzer{base},
			&addAnalyzer{base},
			&refreshAnalyzer{base},
			&declineCounterAnalyzer{base},
		},
		internal: &internalAnalyzer{base},
	}
}

// Analyze routes one message to its analyzer. A nil analysis with a nil
// error means the message was skipped because no analyzer handles its
// method under the current configuration.
func (d *Dispatcher) Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error) {
	analyzer := d.selectAnalyzer(msg, headers)
	if analyzer == nil {
		d.env.logger().Info("no analyzer for message, skipping",
			"method", msg.Method, "uid", msg.UID(), "legacy", d.env.LegacyScheduling)
		metrics.MessagesSkipped.Inc()
		return nil, nil
	}

	started := time.Now()
	analysis, err := analyzer.Analyze(ctx, msg, headers, format, session)
	metrics.AnalysisDuration.Observe(float64(time.Since(started).Milliseconds()))
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(string(msg.Method), "error").Inc()
		return nil, err
	}
	metrics.AnalysesTotal.WithLabelValues(string(msg.Method), "ok").Inc()
	for _, action := range analysis.Actions {
		metrics.RecommendationsTotal.WithLabelValues(string(action)).Inc()
	}
	return analysis, nil
}

// AnalyzeAll analyzes a batch of messages. Skipped messages and
// per-message infrastructure faults do not stop the batch; faults are
// logged and the affected message is dropped from the result.
func (d *Dispatcher) AnalyzeAll(ctx context.Context, msgs []*Message, headers map[string]string, format RenderFormat, session *Session) []*Analysis {
	analyses := make([]*Analysis, 0, len(msgs))
	for _, msg := range msgs {
		analysis, err := d.Analyze(ctx, msg, headers, format, session)
		if err != nil {
			d.env.logger().Error("analysis failed",
				"method", msg.Method, "uid", msg.UID(), "error", err)
			continue
		}
		if analysis != nil {
			analyses = append(analyses, analysis)
		}
	}
	return analyses
}

func (d *Dispatcher) selectAnalyzer(msg *Message, headers map[string]string) Analyzer {
	if headers[HeaderInternalNotification] != "" {
		return d.internal
	}
	for _, analyzer := range d.analyzers {
		if d.env.LegacyScheduling && !analyzer.SupportsLegacy() {
			continue
		}
		for _, m := range analyzer.Methods() {
			if m == msg.Method {
				return analyzer
			}
		}
	}
	return nil
}
