package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the collected metrics to a Prometheus Pushgateway. A CLI run is
// too short-lived to be scraped, so metrics are pushed once at exit.
func Push(ctx context.Context, gatewayURL string) error {
	if !enabled || gatewayURL == "" {
		return nil
	}

	pusher := push.New(gatewayURL, serviceName).
		Gatherer(registry).
		Grouping("service", serviceName)

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}
