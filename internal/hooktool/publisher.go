// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooktool

import (
	"context"

	"github.com/juju/errors"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/status"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/worker/statusdispatcher"
)

// StatusSetter is the part of the client used to publish statuses.
type StatusSetter interface {
	StatusSet(ctx context.Context, st status.Status, message string) error
}

// Publisher publishes status reports with status-set.
type Publisher struct {
	setter StatusSetter
}

// NewPublisher returns a Publisher using setter.
func NewPublisher(setter StatusSetter) *Publisher {
	return &Publisher{setter: setter}
}

// PublishStatus is part of the statusdispatcher.Publisher interface.
//
// Charms cannot set the error status themselves; the platform puts the
// unit in error when the hook fails. An error report is therefore refused
// here and the caller is expected to fail the hook.
func (p *Publisher) PublishStatus(ctx context.Context, report status.Report) error {
	if !status.ValidWorkloadStatus(report.Status) {
		return errors.Annotatef(statusdispatcher.ErrPublishRefused, "%s", report)
	}
	return errors.Trace(p.setter.StatusSet(ctx, report.Status, report.Message()))
}
