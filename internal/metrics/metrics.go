package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_candidates_total",
			Help: "Raw candidates produced per strategy.",
		},
		[]string{"strategy"},
	)

	RejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_rejects_total",
			Help: "Candidates discarded per reason (quality, cooldown, risk, data).",
		},
		[]string{"reason"},
	)

	SignalsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_signals_emitted_total",
			Help: "Final signals handed to the notifier, per winning strategy.",
		},
		[]string{"strategy"},
	)

	OpenSignals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_bot_open_signals",
			Help: "Signals awaiting SL/TP resolution.",
		},
	)
)

func init() {
	prometheus.MustRegister(CandidatesTotal, RejectsTotal, SignalsEmitted, OpenSignals)
}

// Serve поднимает /metrics. Пустой адрес — метрики выключены.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
