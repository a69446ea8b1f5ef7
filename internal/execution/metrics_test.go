package execution

import "testing"

func TestMetrics_CountersAndHistograms(t *testing.T) {
	TasksStartedTotal.WithLabelValues("BUY", "TAKER").Inc()
	TasksCompletedTotal.WithLabelValues("BUY", "COMPLETED").Inc()
	TaskDurationSeconds.Observe(1.5)
	OrdersPlacedTotal.WithLabelValues("venue-a", "BUY").Inc()
	HedgeRetriesTotal.Inc()
	UnwindsTotal.Inc()
	UnwindLossUSD.Add(1.25)
	PausesTotal.Inc()
	FillLatencySeconds.WithLabelValues("rest_poll").Observe(0.2)
	StateMismatchTotal.Inc()
	RealizedPnLUSD.Add(3.4)
}
