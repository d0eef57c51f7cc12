package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tessera",
		Subsystem: "consumer",
		Name:      "sync_requests_processed_total",
		Help:      "Number of sync requests successfully handled.",
	}, []string{"topic", "vendor"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tessera",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by topic and vendor.",
	}, []string{"topic", "vendor"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tessera",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Number of decode failures per topic.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tessera",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge)
}

func recordProcessed(request SyncRequest) {
	processedCounter.WithLabelValues(request.Topic, string(request.Vendor)).Inc()
	if !request.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(request.Topic).Set(float64(request.Timestamp.Unix()))
	}
}

func recordHandlerError(request SyncRequest) {
	handlerErrorCounter.WithLabelValues(request.Topic, string(request.Vendor)).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
