package metrics

import "time"

// Run records the final result of a launch run.
func Run(result string) {
	if !enabled {
		return
	}
	runTotal.WithLabelValues(result).Inc()
}

// Deploy records a deployment attempt.
func Deploy(status string) {
	if !enabled {
		return
	}
	deployTotal.WithLabelValues(status).Inc()
}

// Verify records a verification submission.
func Verify(status string) {
	if !enabled {
		return
	}
	verifyTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	if !enabled {
		return
	}
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
