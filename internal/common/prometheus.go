package common

import "github.com/prometheus/client_golang/prometheus"

const (
	ReferralRecordedTotal = "referral_recorded_total"
	ClosureTotal          = "closure_total"
	OracleCallTotal       = "oracle_call_total"
	ClaimSubmittedTotal   = "claim_submitted_total"
	BotUpdateTotal        = "bot_update_total"
	ClosureDurationSecond = "closure_duration_seconds"
	BotUpdateDuration     = "bot_update_duration_seconds"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		ReferralRecordedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ReferralRecordedTotal,
			Help: "Count of referral attempts by result",
		}, []string{"result"}),
		ClosureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ClosureTotal,
			Help: "Count of closures by kind and result",
		}, []string{"kind", "result"}),
		OracleCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: OracleCallTotal,
			Help: "Count of membership and profile lookups by method and result",
		}, []string{"method", "result"}),
		ClaimSubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: ClaimSubmittedTotal,
			Help: "Count of claim submissions by result",
		}, []string{"result"}),
		BotUpdateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: BotUpdateTotal,
			Help: "Count of inbound bot updates by kind and error code",
		}, []string{"kind", "code"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		ClosureDurationSecond: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: ClosureDurationSecond,
			Help: "Duration of closure transactions",
		}, []string{"kind"}),
		BotUpdateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: BotUpdateDuration,
			Help: "Duration of bot update handling",
		}, []string{"kind"}),
	}
)

// Collectors lists every metric above for registration.
func Collectors() []prometheus.Collector {
	result := []prometheus.Collector{}
	for _, c := range PromCounters {
		result = append(result, c)
	}

	for _, h := range PromHistograms {
		result = append(result, h)
	}

	return result
}

func Inc(name string, labels ...string) {
	if c, ok := PromCounters[name]; ok {
		c.WithLabelValues(labels...).Inc()
	}
}
