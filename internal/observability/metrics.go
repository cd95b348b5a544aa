// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Provider metrics
	ProviderFetches        *prometheus.CounterVec
	ProviderFetchDuration  *prometheus.HistogramVec
	ProviderRecords        *prometheus.CounterVec
	ProviderRetries        *prometheus.CounterVec
	ProviderRateLimitWaits *prometheus.CounterVec

	// Discovery metrics
	RecordsMerged    prometheus.Counter
	RecordsFiltered  *prometheus.CounterVec
	StreamersCreated prometheus.Counter
	StreamersUpdated prometheus.Counter
	SamplesAppended  prometheus.Counter

	// Tier metrics
	TierUpgrades        *prometheus.CounterVec
	TierEvaluationError prometheus.Counter

	// Pricing metrics
	PriceComputations *prometheus.CounterVec
	PriceLamports     prometheus.Histogram
	ActiveSurges      prometheus.Gauge

	// Quote metrics
	QuotesIssued       prometheus.Counter
	QuoteVerifications *prometheus.CounterVec
	MintsTotal         prometheus.Counter

	// Scheduler metrics
	TriggerRuns     *prometheus.CounterVec
	TriggerDuration *prometheus.HistogramVec
	TriggerSkipped  *prometheus.CounterVec
	LastSuccessful  *prometheus.GaugeVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pumpcards"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		ProviderFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetches_total",
			Help:      "Total number of provider fetches by status",
		}, []string{"provider", "status"}),
		ProviderFetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_duration_seconds",
			Help:      "Provider fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		ProviderRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "records_total",
			Help:      "Total number of valid records returned by provider",
		}, []string{"provider"}),
		ProviderRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "http_retries_total",
			Help:      "Total number of HTTP retries by provider",
		}, []string{"provider"}),
		ProviderRateLimitWaits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "rate_limit_waits_total",
			Help:      "Total number of requests delayed by the client-side rate limiter",
		}, []string{"provider"}),

		RecordsMerged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "records_merged_total",
			Help:      "Total number of records folded into an existing key",
		}),
		RecordsFiltered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "records_filtered_total",
			Help:      "Total number of records dropped by reason",
		}, []string{"reason"}),
		StreamersCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "streamers_created_total",
			Help:      "Total number of streamers created",
		}),
		StreamersUpdated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "streamers_updated_total",
			Help:      "Total number of streamers with backfilled fields",
		}),
		SamplesAppended: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "samples_appended_total",
			Help:      "Total number of metric samples appended",
		}),

		TierUpgrades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tier",
			Name:      "upgrades_total",
			Help:      "Total number of committed tier upgrades",
		}, []string{"from", "to"}),
		TierEvaluationError: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tier",
			Name:      "evaluation_errors_total",
			Help:      "Total number of per-streamer evaluation failures",
		}),

		PriceComputations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "computations_total",
			Help:      "Total number of price computations by result",
		}, []string{"result"}),
		PriceLamports: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "price_lamports",
			Help:      "Distribution of computed prices in lamports",
			Buckets:   prometheus.ExponentialBuckets(5_000_000, 2, 10),
		}),
		ActiveSurges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "surge",
			Name:      "active",
			Help:      "Number of cards with an active surge multiplier",
		}),

		QuotesIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "issued_total",
			Help:      "Total number of signed quotes issued",
		}),
		QuoteVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "verifications_total",
			Help:      "Total number of quote verifications by result",
		}, []string{"result"}),
		MintsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "mints_total",
			Help:      "Total number of redeemed quotes",
		}),

		TriggerRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Total number of trigger runs by status",
		}, []string{"trigger", "status"}),
		TriggerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "duration_seconds",
			Help:      "Trigger execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"trigger"}),
		TriggerSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "skipped_total",
			Help:      "Total number of runs skipped because a previous run was in progress",
		}, []string{"trigger"}),
		LastSuccessful: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful trigger run",
		}, []string{"trigger"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordProviderFetch records one adapter fetch.
func RecordProviderFetch(provider string, records int, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.ProviderFetches.WithLabelValues(provider, status).Inc()
	DefaultMetrics.ProviderFetchDuration.WithLabelValues(provider).Observe(seconds)
	DefaultMetrics.ProviderRecords.WithLabelValues(provider).Add(float64(records))
}

// RecordProviderRetry increments the retry counter of a provider.
func RecordProviderRetry(provider string) {
	DefaultMetrics.ProviderRetries.WithLabelValues(provider).Inc()
}

// RecordRateLimitWait increments the rate limiter wait counter of a provider.
func RecordRateLimitWait(provider string) {
	DefaultMetrics.ProviderRateLimitWaits.WithLabelValues(provider).Inc()
}

// RecordMerged adds n merged records.
func RecordMerged(n int) {
	DefaultMetrics.RecordsMerged.Add(float64(n))
}

// RecordFiltered increments the filtered counter for reason.
func RecordFiltered(reason string) {
	DefaultMetrics.RecordsFiltered.WithLabelValues(reason).Inc()
}

// RecordPersist records the outcome of persisting one discovery batch.
func RecordPersist(created, updated, samples int) {
	DefaultMetrics.StreamersCreated.Add(float64(created))
	DefaultMetrics.StreamersUpdated.Add(float64(updated))
	DefaultMetrics.SamplesAppended.Add(float64(samples))
}

// RecordTierUpgrade increments the upgrade counter.
func RecordTierUpgrade(from, to string) {
	DefaultMetrics.TierUpgrades.WithLabelValues(from, to).Inc()
}

// RecordTierError increments the per-streamer evaluation error counter.
func RecordTierError() {
	DefaultMetrics.TierEvaluationError.Inc()
}

// RecordPrice records one price computation. fallback marks the safe default path.
func RecordPrice(lamports int64, fallback bool) {
	result := "computed"
	if fallback {
		result = "fallback"
	}
	DefaultMetrics.PriceComputations.WithLabelValues(result).Inc()
	DefaultMetrics.PriceLamports.Observe(float64(lamports))
}

// SetActiveSurges sets the active surge gauge.
func SetActiveSurges(n int) {
	DefaultMetrics.ActiveSurges.Set(float64(n))
}

// RecordQuoteIssued increments the issued quote counter.
func RecordQuoteIssued() {
	DefaultMetrics.QuotesIssued.Inc()
}

// RecordQuoteVerification records a verification result.
func RecordQuoteVerification(ok bool) {
	result := "valid"
	if !ok {
		result = "rejected"
	}
	DefaultMetrics.QuoteVerifications.WithLabelValues(result).Inc()
}

// RecordMint increments the mint counter.
func RecordMint() {
	DefaultMetrics.MintsTotal.Inc()
}

// RecordTriggerRun records a scheduled trigger run.
func RecordTriggerRun(trigger, status string, durationSeconds float64) {
	DefaultMetrics.TriggerRuns.WithLabelValues(trigger, status).Inc()
	DefaultMetrics.TriggerDuration.WithLabelValues(trigger).Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessful.WithLabelValues(trigger).Set(float64(time.Now().Unix()))
	}
}

// RecordTriggerSkipped increments the skipped run counter.
func RecordTriggerSkipped(trigger string) {
	DefaultMetrics.TriggerSkipped.WithLabelValues(trigger).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(method, route, httpCode(code)).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(method, route).Observe(seconds)
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
