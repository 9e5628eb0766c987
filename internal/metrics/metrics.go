package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "energypassport_"

var (
	registerOnce sync.Once

	uploadsTotal   *prometheus.CounterVec
	phaseLatency   *prometheus.HistogramVec
	nodeRecords    *prometheus.CounterVec
	nodeWarnings   prometheus.Counter
	aiMappingCalls *prometheus.CounterVec
	readinessScore *prometheus.GaugeVec
)

// Init registers the ingestion metrics once per process.
func Init() {
	registerOnce.Do(func() {
		uploadsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "uploads_total",
				Help: "Processed uploads by final status and resource tag",
			},
			[]string{"status", "resource"},
		)
		phaseLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_phase_seconds",
				Help:    "Ingest phase latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		)
		nodeRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "balance_node_records_total",
				Help: "Node records extracted from balance acts by data type",
			},
			[]string{"data_type"},
		)
		nodeWarnings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "balance_validation_warnings_total",
				Help: "Validation warnings attached to node records",
			},
		)
		aiMappingCalls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ai_mapping_calls_total",
				Help: "LLM sheet mapping attempts by outcome",
			},
			[]string{"result"},
		)
		readinessScore = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "readiness_completeness_score",
				Help: "Last computed completeness score per enterprise",
			},
			[]string{"enterprise"},
		)

		prometheus.MustRegister(
			uploadsTotal,
			phaseLatency,
			nodeRecords,
			nodeWarnings,
			aiMappingCalls,
			readinessScore,
		)
	})
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncUpload counts one finished upload.
func IncUpload(status, resource string) {
	if status == "" {
		status = "unknown"
	}
	if resource == "" {
		resource = "other"
	}
	if uploadsTotal != nil {
		uploadsTotal.WithLabelValues(status, resource).Inc()
	}
}

// ObservePhase records one pipeline phase duration.
func ObservePhase(phase string, duration time.Duration) {
	if phaseLatency != nil {
		phaseLatency.WithLabelValues(phase).Observe(duration.Seconds())
	}
}

// AddNodeRecords counts extracted node records.
func AddNodeRecords(dataType string, count int) {
	if count <= 0 {
		return
	}
	if nodeRecords != nil {
		nodeRecords.WithLabelValues(dataType).Add(float64(count))
	}
}

// AddNodeWarnings counts validation warnings.
func AddNodeWarnings(count int) {
	if count <= 0 {
		return
	}
	if nodeWarnings != nil {
		nodeWarnings.Add(float64(count))
	}
}

// IncAIMapping counts one LLM mapping attempt.
func IncAIMapping(result string) {
	if result == "" {
		result = "unknown"
	}
	if aiMappingCalls != nil {
		aiMappingCalls.WithLabelValues(result).Inc()
	}
}

// SetReadiness records the last completeness score of an enterprise.
func SetReadiness(enterprise string, score float64) {
	if readinessScore != nil {
		readinessScore.WithLabelValues(enterprise).Set(score)
	}
}
