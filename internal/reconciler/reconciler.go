// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package reconciler derives the workload status of the unit from the
// relations it has established and the relations it requires.
package reconciler

import (
	"fmt"
	"reflect"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
	"github.com/evershalik/oai-ran-du-k8s-operator/core/status"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/requirement"
)

// View is the read-only part of the relation registry the reconciler
// needs.
type View interface {
	// IsEstablished reports whether the named relation is established.
	IsEstablished(relation.Name) bool

	// Snapshot returns every established relation.
	Snapshot() []relation.Relation
}

// Logger represents the logging methods called.
type Logger interface {
	Errorf(message string, args ...any)
	Debugf(message string, args ...any)
}

// Evaluate computes the status report for the given registry view and
// requirement set. It performs no I/O and mutates nothing, so the same
// inputs always produce the same report.
//
// A relation known to the registry but not declared by the set is a
// programming error and yields an error report rather than being
// ignored.
func Evaluate(view View, reqs *requirement.Set) status.Report {
	if isNil(view) || reqs == nil {
		return status.Report{
			Status: status.Error,
			Reason: "status evaluated without a relation registry or requirement set",
		}
	}
	for _, rel := range view.Snapshot() {
		if !reqs.Declared(rel.Name) {
			return status.Report{
				Status: status.Error,
				Reason: fmt.Sprintf("relation %q is not declared in the requirement set", rel.Name),
			}
		}
	}
	for _, name := range reqs.RequiredNames() {
		if !view.IsEstablished(name) {
			return status.Report{Status: status.Blocked, Reason: string(name)}
		}
	}
	return status.Report{Status: status.Active}
}

// isNil reports whether view is nil, including a nil pointer held in
// the interface.
func isNil(view View) bool {
	if view == nil {
		return true
	}
	v := reflect.ValueOf(view)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Reconciler evaluates status reports for a fixed requirement set and
// logs contract violations.
type Reconciler struct {
	reqs   *requirement.Set
	logger Logger
}

// New returns a reconciler bound to the given requirement set.
func New(reqs *requirement.Set, logger Logger) *Reconciler {
	return &Reconciler{
		reqs:   reqs,
		logger: logger,
	}
}

// Requirements returns the requirement set the reconciler is bound to.
func (r *Reconciler) Requirements() *requirement.Set {
	return r.reqs
}

// Evaluate computes the report for the view, logging loudly when the
// result is an error.
func (r *Reconciler) Evaluate(view View) status.Report {
	report := Evaluate(view, r.reqs)
	if report.Status == status.Error {
		r.logger.Errorf("relation invariant violated: %s", report.Reason)
	} else {
		r.logger.Debugf("evaluated status %s", report)
	}
	return report
}
