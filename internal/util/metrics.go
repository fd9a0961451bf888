package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	RateLimitExceededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of requests rejected by a rate limiter",
	}, []string{"limiter"})

	SuspiciousRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suspicious_requests_total",
		Help: "Total number of requests rejected by suspicious activity detection",
	})

	ValidationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of requests rejected by schema validation",
	})

	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders submitted to the remote catalog",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order submissions",
	}, []string{"reason"})

	CatalogRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_latency_seconds",
		Help:    "Latency of remote catalog API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	CatalogRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_request_errors_total",
		Help: "Total number of failed remote catalog API calls",
	}, []string{"operation"})
)
