package orderbook

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if UpdatesTotal == nil {
		t.Error("UpdatesTotal not registered")
	}

	if BooksTracked == nil {
		t.Error("BooksTracked not registered")
	}

	if UpdatesDroppedTotal == nil {
		t.Error("UpdatesDroppedTotal not registered")
	}

	if UpdateProcessingDuration == nil {
		t.Error("UpdateProcessingDuration not registered")
	}

	if LockContentionDuration == nil {
		t.Error("LockContentionDuration not registered")
	}

	if StaleBooksTotal == nil {
		t.Error("StaleBooksTotal not registered")
	}
}

// TestMetrics_CounterIncrement tests counter can be incremented
func TestMetrics_CounterIncrement(t *testing.T) {
	UpdatesTotal.WithLabelValues("venue-b", "book").Inc()
	UpdatesDroppedTotal.WithLabelValues("channel_full").Inc()
	StaleBooksTotal.WithLabelValues("venue-a").Inc()
}

// TestMetrics_GaugeSet tests gauge can be set
func TestMetrics_GaugeSet(t *testing.T) {
	BooksTracked.WithLabelValues("venue-b").Set(100)
}

// TestMetrics_HistogramObserve tests histogram can observe values
func TestMetrics_HistogramObserve(t *testing.T) {
	UpdateProcessingDuration.Observe(0.001)
	LockContentionDuration.Observe(0.0005)
}

// TestMetrics_Labels tests label values are accepted
func TestMetrics_Labels(t *testing.T) {
	UpdatesTotal.WithLabelValues("venue-b", "book").Inc()
	UpdatesTotal.WithLabelValues("venue-a", "price_change").Inc()

	UpdatesDroppedTotal.WithLabelValues("channel_full").Inc()
	UpdatesDroppedTotal.WithLabelValues("slow_consumer").Inc()
}
