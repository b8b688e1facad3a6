package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJobName groups the job's series on the Pushgateway.
const PushJobName = "reverse_search"

// Push sends the current metric values to a Prometheus Pushgateway. One-shot
// runs exit before a scrape could happen, so they push instead.
func Push(ctx context.Context, gatewayURL string, m *Metrics) error {
	err := push.New(gatewayURL, PushJobName).
		Gatherer(m.Registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
