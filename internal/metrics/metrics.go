// Package metrics holds the Prometheus collectors shared by the update
// client and the reconciliation driver, and the optional scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ddns"

// UpdateCount counts update transactions by zone, operation and result.
var UpdateCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "updates_total",
	Help:      "Counter of dynamic update transactions sent to the nameserver.",
}, []string{"zone", "operation", "result"})

// TransferCount counts zone transfers by zone and result.
var TransferCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "transfers_total",
	Help:      "Counter of zone transfers requested from the nameserver.",
}, []string{"zone", "result"})

// ManagedNames is the number of owner names carrying this client's ownership tag.
var ManagedNames = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "managed_names",
	Help:      "Owner names tagged as managed by this client, per zone.",
}, []string{"zone"})

// PollCandidates is the size of the last candidate set from the container lister.
var PollCandidates = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "poll_candidates",
	Help:      "Candidate records returned by the last container poll.",
})

// Result maps an error to the result label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	}
}
