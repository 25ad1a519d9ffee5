package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns/rfc2136"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/metrics"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/source"
)

// Reconciler pushes static and container-derived records to the nameserver.
// It only ever adds: records whose container went away are left in place.
type Reconciler struct {
	Log      logr.Logger
	DNS      dns.Updater
	Lister   dns.Lister // optional, used to log what is already managed
	Source   source.Lister
	Zone     string
	Static   []dns.Record
	Interval time.Duration
}

// Run seeds the static records, then polls the source every Interval until
// ctx is cancelled. Per-record and per-iteration failures are logged and do
// not stop the loop.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", r.Interval)
	}

	if err := r.Seed(ctx); err != nil {
		r.Log.Error(err, "some static records were not applied")
	}

	r.Log.Info("starting poll loop", "interval", r.Interval)
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		if err := r.Reconcile(ctx); err != nil {
			r.Log.Error(err, "poll iteration finished with errors")
		}
	}, r.Interval)

	r.Log.Info("poll loop stopped")
	return nil
}

// Seed applies every static record, with its reverse record when one applies.
func (r *Reconciler) Seed(ctx context.Context) error {
	r.Log.Info("applying static records", "count", len(r.Static))
	return r.apply(ctx, r.Static)
}

// Reconcile runs one poll iteration: observe the managed names, list the
// candidates and apply each of them.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	managed := r.observe(ctx)

	candidates, err := r.Source.List(ctx)
	if err != nil {
		return fmt.Errorf("listing candidate records: %w", err)
	}
	metrics.PollCandidates.Set(float64(len(candidates)))
	r.Log.Info("candidate records", "count", len(candidates), "records", FormatRecords(candidates))

	if managed != nil {
		names := sets.New[string]()
		for _, c := range candidates {
			if !managed.Contains(c) {
				names.Insert(c.Name)
			}
		}
		if names.Len() > 0 {
			r.Log.V(1).Info("candidates not yet managed", "names", sets.List(names))
		}
	}

	return r.apply(ctx, candidates)
}

// observe lists the managed records of the zone for the logs. Failures are
// only logged.
func (r *Reconciler) observe(ctx context.Context) *dns.ManagedRecords {
	if r.Lister == nil {
		return nil
	}
	managed, err := r.Lister.ListManaged(ctx, r.Zone)
	if err != nil {
		r.Log.Error(err, "listing managed records", "zone", r.Zone, "kind", rfc2136.Kind(err))
		return nil
	}
	r.Log.Info("managed DNS entries", "zone", r.Zone, "names", managed.Names())
	return managed
}

// apply sends records one at a time, in order, so writes to the same name
// never race.
func (r *Reconciler) apply(ctx context.Context, records []dns.Record) error {
	var errs []error
	for _, record := range records {
		res := r.DNS.Add(ctx, record)
		for _, o := range outcomes(res) {
			if o.Err != nil {
				r.Log.Error(o.Err, "record skipped", "record", o.Record.String(), "kind", rfc2136.Kind(o.Err))
				errs = append(errs, o.Err)
				continue
			}
			r.Log.V(1).Info("record applied", "record", o.Record.String())
		}
	}
	return utilerrors.NewAggregate(errs)
}

func outcomes(res dns.ApplyResult) []dns.Outcome {
	out := []dns.Outcome{res.Forward}
	if res.Reverse != nil {
		out = append(out, *res.Reverse)
	}
	return out
}
