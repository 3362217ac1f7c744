package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Config holds Pushgateway settings. An empty URL disables pushing.
type Config struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Push sends the default registry to the Pushgateway, grouped by run.
// The process exits right after a run, so there is nothing to scrape.
func Push(cfg Config, runID string) error {
	if cfg.PushgatewayURL == "" {
		return nil
	}
	job := cfg.Job
	if job == "" {
		job = "unstuck"
	}

	err := push.New(cfg.PushgatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("run_id", runID).
		Push()
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
