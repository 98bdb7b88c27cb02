package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutSessionTotal counts payment session creation outcomes.
	CheckoutSessionTotal *prometheus.CounterVec
	// CheckoutPrepareTotal counts order preparation outcomes before session creation.
	CheckoutPrepareTotal *prometheus.CounterVec
	// FakepaySimulationTotal counts fake payment simulations by outcome.
	FakepaySimulationTotal *prometheus.CounterVec
	// EngineRequestTotal counts calls to the prediction engine API by operation.
	EngineRequestTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_session_total",
			Help:      "Count of payment session creation outcomes.",
		}, []string{"result"})
		CheckoutPrepareTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_prepare_total",
			Help:      "Count of order preparation outcomes.",
		}, []string{"result"})
		FakepaySimulationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fakepay_simulation_total",
			Help:      "Count of fake payment simulations by outcome.",
		}, []string{"outcome"})
		EngineRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_request_total",
			Help:      "Count of prediction engine API calls by operation and result.",
		}, []string{"op", "result"})

		mustRegisterCollector(reg, CheckoutSessionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutSessionTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutPrepareTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutPrepareTotal = v
			}
		})
		mustRegisterCollector(reg, FakepaySimulationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FakepaySimulationTotal = v
			}
		})
		mustRegisterCollector(reg, EngineRequestTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				EngineRequestTotal = v
			}
		})
	})
}

// CountCheckoutSession records a payment session creation outcome. Safe to
// call before metric registration.
func CountCheckoutSession(result string) {
	if CheckoutSessionTotal != nil {
		CheckoutSessionTotal.WithLabelValues(result).Inc()
	}
}

// CountCheckoutPrepare records an order preparation outcome.
func CountCheckoutPrepare(result string) {
	if CheckoutPrepareTotal != nil {
		CheckoutPrepareTotal.WithLabelValues(result).Inc()
	}
}

// CountFakepaySimulation records a fake payment simulation outcome.
func CountFakepaySimulation(outcome string) {
	if FakepaySimulationTotal != nil {
		FakepaySimulationTotal.WithLabelValues(outcome).Inc()
	}
}

// CountEngineRequest records a prediction engine call result per operation.
func CountEngineRequest(op, result string) {
	if EngineRequestTotal != nil {
		EngineRequestTotal.WithLabelValues(op, result).Inc()
	}
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
