/*
metrics.go - Prometheus instrumentation for the HTTP surface

Request counts are labeled by method, chi route pattern, and status class;
workflow outcomes get their own counter so task/redemption failure modes
show up without log scraping. Exposed on /metrics via promhttp.
*/
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pairledger_http_requests_total",
	Help: "HTTP requests by method, route pattern, and status code.",
}, []string{"method", "route", "status"})

var workflowOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pairledger_workflow_operations_total",
	Help: "Workflow engine operations by name and outcome.",
}, []string{"operation", "outcome"})

// observeOp records one workflow invocation outcome.
func observeOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	workflowOps.WithLabelValues(operation, outcome).Inc()
}

// metricsMiddleware counts every request once the route pattern is known.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
	})
}
