package llmclient

import (
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/tract-dev/tract/internal/telemetry"
)

// anthMetrics holds lazily-initialized OTel instruments for Anthropic API
// calls, the same pattern as haiku.go's aiMetrics/aiMetricsOnce.
var anthMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	duration     metric.Float64Histogram
}

var anthMetricsOnce sync.Once

func initAnthMetrics() {
	m := telemetry.Meter("github.com/tract-dev/tract/llmclient")
	anthMetrics.inputTokens, _ = m.Int64Counter("tract.llm.input_tokens",
		metric.WithDescription("Anthropic API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	anthMetrics.outputTokens, _ = m.Int64Counter("tract.llm.output_tokens",
		metric.WithDescription("Anthropic API output tokens generated"),
		metric.WithUnit("{token}"),
	)
	anthMetrics.duration, _ = m.Float64Histogram("tract.llm.request.duration",
		metric.WithDescription("Anthropic API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
}
