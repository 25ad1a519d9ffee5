package dns

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Outcome is the result of one update transaction.
type Outcome struct {
	Record Record
	Err    error
}

// ApplyResult reports every transaction issued for one record. Forward covers
// the record together with its ownership tag; Reverse is nil when no PTR
// record was derived.
type ApplyResult struct {
	Forward Outcome
	Reverse *Outcome
}

// Err aggregates the failures of all parts, or returns nil.
func (r ApplyResult) Err() error {
	errs := []error{r.Forward.Err}
	if r.Reverse != nil {
		errs = append(errs, r.Reverse.Err)
	}
	return utilerrors.NewAggregate(errs)
}

// Applied returns the records whose transaction succeeded.
func (r ApplyResult) Applied() []Record {
	var out []Record
	if r.Forward.Err == nil {
		out = append(out, r.Forward.Record)
	}
	if r.Reverse != nil && r.Reverse.Err == nil {
		out = append(out, r.Reverse.Record)
	}
	return out
}
