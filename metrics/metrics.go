// Package metrics registers the relay's Prometheus collectors. Everything
// lives on the default registry and is served by the web package under
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "steno_clients_connected",
		Help: "Number of clients currently connected to the relay",
	})
	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steno_sessions_total",
		Help: "Total number of client sessions accepted",
	})
	AudioBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steno_audio_bytes_total",
		Help: "Raw PCM bytes pulled from client connections",
	})
	FragmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steno_fragments_total",
		Help: "Sentence fragments emitted by the assemblers",
	})
	EngineErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steno_engine_errors_total",
		Help: "Recognition sessions that ended with an error",
	})
)
