package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CouponValidationTotal counts coupon validation outcomes.
	CouponValidationTotal *prometheus.CounterVec
	// RedemptionTotal counts redemption settlement outcomes.
	RedemptionTotal *prometheus.CounterVec
	// PricingEvaluationTotal counts full cart pricing evaluations.
	PricingEvaluationTotal prometheus.Counter
	// PricingEvaluationLatency records cart evaluation latency in milliseconds.
	PricingEvaluationLatency prometheus.Histogram
	// PricingDegradedTotal counts evaluations that fell back to full price.
	PricingDegradedTotal prometheus.Counter
	// VariantPriceCacheTotal tracks variant price cache lookups by result.
	VariantPriceCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CouponValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validation_total",
			Help:      "Count of coupon validation outcomes.",
		}, []string{"result"})
		RedemptionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemption_total",
			Help:      "Count of redemption settlement outcomes.",
		}, []string{"result"})
		PricingEvaluationTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_evaluation_total",
			Help:      "Total number of cart pricing evaluations.",
		})
		PricingEvaluationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_evaluation_duration_ms",
			Help:      "Latency of full cart pricing evaluations in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		})
		PricingDegradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_degraded_total",
			Help:      "Count of pricing evaluations degraded to full price by rule store faults.",
		})
		VariantPriceCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variant_price_cache_total",
			Help:      "Variant price cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, CouponValidationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponValidationTotal = v
			}
		})
		mustRegisterCollector(reg, RedemptionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RedemptionTotal = v
			}
		})
		mustRegisterCollector(reg, PricingEvaluationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PricingEvaluationTotal = v
			}
		})
		mustRegisterCollector(reg, PricingEvaluationLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				PricingEvaluationLatency = v
			}
		})
		mustRegisterCollector(reg, PricingDegradedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PricingDegradedTotal = v
			}
		})
		mustRegisterCollector(reg, VariantPriceCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VariantPriceCacheTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
