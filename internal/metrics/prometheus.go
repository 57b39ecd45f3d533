// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the fulfillment engine.
var (
	// Counters.
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Total settlement attempts by outcome",
		},
		[]string{"category", "outcome"},
	)

	SettlementRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settlement_retries_total",
			Help: "Total settlement retries after transient conflicts",
		},
	)

	TestsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tests_completed_total",
			Help: "Total test campaigns that reached their package size",
		},
		[]string{"category"},
	)

	CreditsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_awarded_total",
			Help: "Total credits awarded to testers",
		},
	)

	TierPromotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tier_promotions_total",
			Help: "Total tester tier promotions",
		},
		[]string{"tier"},
	)

	SummaryCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_cache_hits_total",
			Help: "Summary cache lookups by result",
		},
		[]string{"result"},
	)

	// Gauges.
	ActiveTests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_tests",
			Help: "Current number of active test campaigns",
		},
		[]string{"category"},
	)

	RegisteredTesters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registered_testers",
			Help: "Current number of registered testers",
		},
	)

	// Histograms.
	SettleDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "settle_duration_seconds",
			Help:    "Time taken to settle a submission",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	QualityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "submission_quality_score",
			Help:    "Quality scores assigned to settled submissions",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 to 100
		},
	)
)

// RecordSettlement records a settlement attempt outcome.
func RecordSettlement(category, outcome string) {
	SettlementsTotal.WithLabelValues(category, outcome).Inc()
}

// RecordSettlementRetry records a retry after a transient conflict.
func RecordSettlementRetry() {
	SettlementRetriesTotal.Inc()
}

// RecordTestCompleted records a campaign reaching its package size.
func RecordTestCompleted(category string) {
	TestsCompletedTotal.WithLabelValues(category).Inc()
}

// RecordCreditsAwarded records credits granted to a tester.
func RecordCreditsAwarded(credits int) {
	CreditsAwardedTotal.Add(float64(credits))
}

// RecordTierPromotion records a tester tier promotion.
func RecordTierPromotion(tier string) {
	TierPromotionsTotal.WithLabelValues(tier).Inc()
}

// RecordSummaryCacheLookup records a summary cache hit or miss.
func RecordSummaryCacheLookup(result string) {
	SummaryCacheHitsTotal.WithLabelValues(result).Inc()
}

// SetActiveTests sets the active campaign gauge for a category.
func SetActiveTests(category string, count int64) {
	ActiveTests.WithLabelValues(category).Set(float64(count))
}

// SetRegisteredTesters sets the registered tester gauge.
func SetRegisteredTesters(count int64) {
	RegisteredTesters.Set(float64(count))
}

// ObserveSettleDuration observes settlement latency.
func ObserveSettleDuration(seconds float64) {
	SettleDurationSeconds.Observe(seconds)
}

// ObserveQualityScore observes an assigned quality score.
func ObserveQualityScore(score int) {
	QualityScore.Observe(float64(score))
}
