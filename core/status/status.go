// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package status

import (
	"fmt"
)

// Status represents the workload status of the unit as seen by the
// hosting platform.
type Status string

// String returns a string representation of the Status.
func (s Status) String() string {
	return string(s)
}

const (
	// Blocked is set when:
	// The unit needs manual intervention, usually an integration that
	// has not been created yet.
	Blocked Status = "blocked"

	// Active is set when:
	// Every required integration of the unit is established.
	Active Status = "active"

	// Error is set when:
	// The reconciler detected a broken internal contract. The entity
	// requires human intervention in order to operate correctly.
	Error Status = "error"

	// Maintenance is set when:
	// The unit is not yet providing services, but is actively doing stuff
	// in preparation for providing those services.
	Maintenance Status = "maintenance"

	// Waiting is set when:
	// The unit is unable to progress to an active state because an
	// application to which it is related is not running.
	Waiting Status = "waiting"
)

// KnownWorkloadStatus returns true if status has a known value for a
// workload, including error.
func (s Status) KnownWorkloadStatus() bool {
	if ValidWorkloadStatus(s) {
		return true
	}
	return s == Error
}

// ValidWorkloadStatus returns true if status has a valid value (that is to
// say, a value that it's OK to set with status-set) for units.
func ValidWorkloadStatus(status Status) bool {
	switch status {
	case
		Blocked,
		Maintenance,
		Waiting,
		Active:
		return true
	default:
		return false
	}
}

// Report is the outcome of a single reconciliation. It is never persisted;
// the latest report supersedes every previous one.
type Report struct {
	// Status is the derived workload status.
	Status Status

	// Reason is empty for active reports. For blocked reports it holds the
	// name of the first unmet relation, for error reports a description of
	// the violated contract.
	Reason string
}

// Initial is the report a unit starts with, before any relation is known.
func Initial() Report {
	return Report{Status: Blocked}
}

// Equal reports whether two reports would publish the same status.
func (r Report) Equal(other Report) bool {
	return r.Status == other.Status && r.Reason == other.Reason
}

// Message returns the human readable message published alongside the
// status. Active reports carry no message.
func (r Report) Message() string {
	switch r.Status {
	case Active:
		return ""
	case Blocked:
		if r.Reason == "" {
			return ""
		}
		return fmt.Sprintf("Waiting for %s relation to be created", r.Reason)
	default:
		return r.Reason
	}
}

// String is used in log messages.
func (r Report) String() string {
	if msg := r.Message(); msg != "" {
		return fmt.Sprintf("%s: %s", r.Status, msg)
	}
	return r.Status.String()
}
