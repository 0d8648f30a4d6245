package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// RequestSubmissionsTotal counts request submissions by outcome.
	RequestSubmissionsTotal *prometheus.CounterVec
	// RequestTotalYen records the authoritative total of accepted requests.
	RequestTotalYen prometheus.Histogram
	// QuotePreviewsTotal counts preview calls split by readiness.
	QuotePreviewsTotal *prometheus.CounterVec
	// MastersCacheTotal counts master catalog cache lookups by result.
	MastersCacheTotal *prometheus.CounterVec
	// ReceiptConflictsTotal counts receipt numbers regenerated after a unique clash.
	ReceiptConflictsTotal prometheus.Counter
	// ReceiptEmailsTotal tracks receipt confirmation email outcomes.
	ReceiptEmailsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		RequestSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_submissions_total",
			Help:      "Count of request submissions by outcome.",
		}, []string{"result"})
		RequestTotalYen = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_total_yen",
			Help:      "Distribution of recomputed request totals in yen.",
			Buckets:   []float64{5000, 10000, 20000, 30000, 40000, 50000, 75000, 100000},
		})
		QuotePreviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_previews_total",
			Help:      "Count of quote previews by readiness.",
		}, []string{"ready"})
		MastersCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "masters_cache_total",
			Help:      "Master catalog cache lookups by result.",
		}, []string{"result"})
		ReceiptConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_conflicts_total",
			Help:      "Receipt numbers regenerated after colliding with an existing request.",
		})
		ReceiptEmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_emails_total",
			Help:      "Receipt confirmation email outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, RequestSubmissionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RequestSubmissionsTotal = v
			}
		})
		mustRegisterCollector(reg, RequestTotalYen, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				RequestTotalYen = v
			}
		})
		mustRegisterCollector(reg, QuotePreviewsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotePreviewsTotal = v
			}
		})
		mustRegisterCollector(reg, MastersCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				MastersCacheTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptConflictsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ReceiptConflictsTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptEmailsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptEmailsTotal = v
			}
		})
	})
}

// ObserveSubmission records a submission outcome. total is only observed for
// accepted requests.
func ObserveSubmission(result string, total int64) {
	if RequestSubmissionsTotal != nil {
		RequestSubmissionsTotal.WithLabelValues(result).Inc()
	}
	if result == "ok" && RequestTotalYen != nil {
		RequestTotalYen.Observe(float64(total))
	}
}

// ObservePreview records whether a preview could be priced.
func ObservePreview(ready bool) {
	if QuotePreviewsTotal == nil {
		return
	}
	label := "false"
	if ready {
		label = "true"
	}
	QuotePreviewsTotal.WithLabelValues(label).Inc()
}

// ObserveMastersCache records a cache hit or miss.
func ObserveMastersCache(hit bool) {
	if MastersCacheTotal == nil {
		return
	}
	if hit {
		MastersCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	MastersCacheTotal.WithLabelValues("miss").Inc()
}

// ObserveReceiptConflict counts a regenerated receipt number.
func ObserveReceiptConflict() {
	if ReceiptConflictsTotal != nil {
		ReceiptConflictsTotal.Inc()
	}
}

// ObserveReceiptEmail records an email pipeline outcome.
func ObserveReceiptEmail(result string) {
	if ReceiptEmailsTotal != nil {
		ReceiptEmailsTotal.WithLabelValues(result).Inc()
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
