package gateway

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/metrics"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

// handleList builds the handler of one list route: translate the query
// string, call fn, wrap the outcome in an envelope.
func (g *Gateway) handleList(kind state.Kind, fn ListFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := g.metrics.ListDuration(string(kind))
		defer timer.ObserveDuration()

		opts, err := state.ParseListOptions(r.URL.Query())
		if err != nil {
			g.metrics.ListCompleted(string(kind), metrics.OutcomeInvalid)
			writeFailure(w, err)
			return
		}

		res, err := fn(r.Context(), opts)
		if err != nil {
			if errors.IsDataSourceUnavailable(err) {
				g.metrics.ListCompleted(string(kind), metrics.OutcomeUnavailable)
				g.logger.ComponentWarn(logging.ComponentGateway, "Data source unavailable",
					zap.String("kind", string(kind)), zap.Error(err))
			} else {
				g.metrics.ListCompleted(string(kind), metrics.OutcomeError)
				fields := []zap.Field{zap.String("kind", string(kind)), zap.Error(err)}
				var traced interface{ StackTrace() string }
				if errors.As(err, &traced) {
					fields = append(fields, zap.String("stack", traced.StackTrace()))
				}
				g.logger.ComponentError(logging.ComponentGateway, "List failed", fields...)
			}
			writeFailure(w, err)
			return
		}

		outcome := metrics.OutcomeOK
		if res.PartialFailureWarning != "" {
			outcome = metrics.OutcomePartial
		}
		g.metrics.ListCompleted(string(kind), outcome)

		writeEnvelope(w, http.StatusOK, state.OK(reshape(res.Result), res.PartialFailureWarning))
	}
}

// reshape turns structured jobs into plain field maps so every job has
// the same keys on the wire.
func reshape(result any) any {
	jobs, ok := result.(map[string]state.JobInfo)
	if !ok {
		return result
	}
	out := make(map[string]map[string]any, len(jobs))
	for id, j := range jobs {
		out[id] = j.ToMap()
	}
	return out
}
