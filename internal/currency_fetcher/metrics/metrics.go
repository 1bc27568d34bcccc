package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultCache   = "cache"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

type Metrics struct {
	RefreshTotal    *prometheus.CounterVec
	SourceFetches   *prometheus.CounterVec
	ExchangeRate    *prometheus.GaugeVec
	LastUpdateEpoch prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "currency_refresh_total",
			Help: "Rate refresh attempts by outcome.",
		}, []string{"result"}),
		SourceFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "currency_source_fetch_total",
			Help: "Rate source calls by source and outcome.",
		}, []string{"source", "result"}),
		ExchangeRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "currency_exchange_rate",
			Help: "Current units of currency per reference unit.",
		}, []string{"code"}),
		LastUpdateEpoch: factory.NewGauge(prometheus.GaugeOpts{
			Name: "currency_last_update_timestamp_seconds",
			Help: "Unix time of the rate table in use.",
		}),
	}
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Fetch(source string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailed
	}
	m.SourceFetches.WithLabelValues(source, result).Inc()
}

func (m *Metrics) Rates(rates map[string]float64, at time.Time) {
	if m == nil {
		return
	}
	for code, rate := range rates {
		m.ExchangeRate.WithLabelValues(code).Set(rate)
	}
	if !at.IsZero() {
		m.LastUpdateEpoch.Set(float64(at.Unix()))
	}
}
