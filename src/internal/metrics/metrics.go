package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/api-sage/securebank-core/src/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Collector owns a private registry so tests and multiple services in one
// process never collide on metric names. A nil *Collector records nothing.
type Collector struct {
	registry           *prometheus.Registry
	transactions       *prometheus.CounterVec
	transactionSeconds prometheus.Histogram
	transactionAmount  *prometheus.CounterVec
	referenceRetries   prometheus.Counter
	loanOperations     *prometheus.CounterVec
	loanPrincipal      prometheus.Histogram
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Ledger transactions by type and outcome",
		}, []string{"type", "outcome"}),
		transactionSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_transaction_duration_seconds",
			Help:    "Time taken to apply a ledger transaction",
			Buckets: prometheus.DefBuckets,
		}),
		transactionAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transaction_amount_total",
			Help: "Sum of amounts posted by completed transactions",
		}, []string{"type"}),
		referenceRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reference_retries_total",
			Help: "Reference numbers redrawn after a collision",
		}),
		loanOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_operations_total",
			Help: "Loan lifecycle operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		loanPrincipal: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loan_application_amount",
			Help:    "Requested principal of loan applications",
			Buckets: []float64{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000},
		}),
	}
}

// Outcome maps a service error to a label value. Rejections are errors the
// caller caused.
func Outcome(err error, rejections ...error) string {
	if err == nil {
		return OutcomeSuccess
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return OutcomeRejected
		}
	}
	return OutcomeError
}

func (c *Collector) RecordTransaction(txnType, outcome string, amount decimal.Decimal, duration time.Duration) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(txnType, outcome).Inc()
	c.transactionSeconds.Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		c.transactionAmount.WithLabelValues(txnType).Add(amount.InexactFloat64())
	}
}

func (c *Collector) RecordReferenceRetry() {
	if c == nil {
		return
	}
	c.referenceRetries.Inc()
}

func (c *Collector) RecordLoanOperation(operation, outcome string) {
	if c == nil {
		return
	}
	c.loanOperations.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) ObserveLoanApplication(amount decimal.Decimal) {
	if c == nil {
		return
	}
	c.loanPrincipal.Observe(amount.InexactFloat64())
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer serves /metrics on addr in the background. The caller
// owns shutdown of the returned server.
func (c *Collector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", logger.Fields{"addr": addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", err, logger.Fields{"addr": addr})
		}
	}()

	return server
}
