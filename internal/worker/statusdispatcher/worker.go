// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package statusdispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"
	"github.com/kr/pretty"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
	"github.com/evershalik/oai-ran-du-k8s-operator/core/status"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/reconciler"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/requirement"
)

const (
	// StatusChangedTopic is published on the hub every time a new status
	// has been accepted by the platform.
	StatusChangedTopic = "status.changed"

	// ErrPublishRefused is returned by a Publisher when the platform
	// rejected the status outright. Such failures are not retried.
	ErrPublishRefused = errors.ConstError("status refused by platform")

	// ErrStopped is returned to callers whose events can no longer be
	// processed because the dispatcher is shutting down.
	ErrStopped = errors.ConstError("status dispatcher stopped")

	defaultRetryAttempts = 5
	defaultRetryDelay    = time.Second
	defaultRetryMaxDelay = 30 * time.Second
)

// Publisher sets the workload status of the unit on the platform.
type Publisher interface {
	PublishStatus(ctx context.Context, report status.Report) error
}

// Registry is the relation registry the dispatcher owns while it runs.
type Registry interface {
	reconciler.View
	Add(relation.Name, string) error
	Remove(relation.Name)
}

// Hub is the subset of the pubsub hub used to announce status changes.
// Publish returns a func that blocks until the subscribers are done.
type Hub interface {
	Publish(topic string, data interface{}) func()
}

// Logger represents the logging methods called.
type Logger interface {
	Errorf(message string, args ...any)
	Warningf(message string, args ...any)
	Infof(message string, args ...any)
	Debugf(message string, args ...any)
	Tracef(message string, args ...any)

	IsTraceEnabled() bool
}

// StatusChanged is the payload of StatusChangedTopic.
type StatusChanged struct {
	Previous status.Report
	Current  status.Report
}

// Config holds the dependencies of the status dispatcher.
type Config struct {
	Registry     Registry
	Requirements *requirement.Set
	Publisher    Publisher
	Hub          Hub
	Metrics      *Collector
	Clock        clock.Clock
	Logger       Logger

	// RetryAttempts bounds the number of publish attempts for a single
	// status change. Zero means the default.
	RetryAttempts int

	// RetryDelay is the delay before the first publish retry, doubled
	// on each further attempt up to RetryMaxDelay.
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

// Validate ensures that the configuration is
// correctly populated for worker operation.
func (config Config) Validate() error {
	if config.Registry == nil {
		return errors.NotValidf("nil Registry")
	}
	if config.Requirements == nil {
		return errors.NotValidf("nil Requirements")
	}
	if config.Publisher == nil {
		return errors.NotValidf("nil Publisher")
	}
	if config.Hub == nil {
		return errors.NotValidf("nil Hub")
	}
	if config.Metrics == nil {
		return errors.NotValidf("nil Metrics")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.RetryAttempts < 0 {
		return errors.NotValidf("negative RetryAttempts")
	}
	if config.RetryDelay < 0 || config.RetryMaxDelay < 0 {
		return errors.NotValidf("negative retry delay")
	}
	return nil
}

type eventKind string

const (
	relationJoined eventKind = "relation-joined"
	relationBroken eventKind = "relation-broken"
	refresh        eventKind = "refresh"
)

type event struct {
	kind      eventKind
	name      relation.Name
	remoteApp string
	done      chan result
}

type result struct {
	report status.Report
	err    error
}

// Dispatcher applies relation events to the registry one at a time,
// re-evaluates the unit status after each of them and publishes every
// change in the order the events arrived.
type Dispatcher struct {
	catacomb catacomb.Catacomb

	config     Config
	reconciler *reconciler.Reconciler
	events     chan event

	mu        sync.Mutex
	published *status.Report
}

// NewWorker starts a status dispatcher. The initial status is evaluated
// and published before any event is processed.
func NewWorker(config Config) (*Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = defaultRetryAttempts
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = defaultRetryDelay
	}
	if config.RetryMaxDelay == 0 {
		config.RetryMaxDelay = defaultRetryMaxDelay
	}
	if config.RetryMaxDelay < config.RetryDelay {
		config.RetryMaxDelay = config.RetryDelay
	}

	w := &Dispatcher{
		config:     config,
		reconciler: reconciler.New(config.Requirements, config.Logger),
		events:     make(chan event),
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Dispatcher) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Dispatcher) Wait() error {
	return w.catacomb.Wait()
}

var _ worker.Worker = (*Dispatcher)(nil)

// RelationJoined records the relation as established and returns the
// status evaluated afterwards. It blocks until the resulting status has
// been published and announced, or its publication given up.
func (w *Dispatcher) RelationJoined(ctx context.Context, name relation.Name, remoteApp string) (status.Report, error) {
	return w.dispatch(ctx, event{kind: relationJoined, name: name, remoteApp: remoteApp})
}

// RelationBroken records the relation as no longer established and
// returns the status evaluated afterwards.
func (w *Dispatcher) RelationBroken(ctx context.Context, name relation.Name) (status.Report, error) {
	return w.dispatch(ctx, event{kind: relationBroken, name: name})
}

// Refresh re-evaluates the status without changing the registry, and
// publishes it if it changed since the last successful publication.
func (w *Dispatcher) Refresh(ctx context.Context) (status.Report, error) {
	return w.dispatch(ctx, event{kind: refresh})
}

// Report returns the last status accepted by the platform, and false if
// nothing has been published yet.
func (w *Dispatcher) Report() (status.Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.published == nil {
		return status.Report{}, false
	}
	return *w.published, true
}

func (w *Dispatcher) dispatch(ctx context.Context, ev event) (status.Report, error) {
	ev.done = make(chan result, 1)
	select {
	case w.events <- ev:
	case <-w.catacomb.Dying():
		return status.Report{}, ErrStopped
	case <-ctx.Done():
		return status.Report{}, ctx.Err()
	}
	select {
	case res := <-ev.done:
		return res.report, res.err
	case <-w.catacomb.Dying():
		return status.Report{}, ErrStopped
	case <-ctx.Done():
		return status.Report{}, ctx.Err()
	}
}

func (w *Dispatcher) loop() error {
	ctx := w.catacomb.Context(context.Background())

	w.reconcile(ctx)
	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case ev := <-w.events:
			var res result
			if res.err = w.apply(ev); res.err == nil {
				res.report = w.reconcile(ctx)
			}
			ev.done <- res
		}
	}
}

func (w *Dispatcher) apply(ev event) error {
	w.config.Metrics.events.WithLabelValues(string(ev.kind)).Inc()
	switch ev.kind {
	case relationJoined:
		w.config.Logger.Debugf("relation %q joined with %q", ev.name, ev.remoteApp)
		if err := w.config.Registry.Add(ev.name, ev.remoteApp); err != nil {
			return errors.Annotatef(err, "recording relation %q", ev.name)
		}
	case relationBroken:
		w.config.Logger.Debugf("relation %q broken", ev.name)
		w.config.Registry.Remove(ev.name)
	case refresh:
		return nil
	default:
		return errors.NotSupportedf("event %q", ev.kind)
	}
	if w.config.Logger.IsTraceEnabled() {
		w.config.Logger.Tracef("relations after %s: %# v", ev.kind, pretty.Formatter(w.config.Registry.Snapshot()))
	}
	return nil
}

// reconcile evaluates the current status and publishes it if it differs
// from the last published one. A status that could not be published is
// left for the next event to publish again.
func (w *Dispatcher) reconcile(ctx context.Context) status.Report {
	report := w.reconciler.Evaluate(w.config.Registry)
	w.config.Metrics.evaluations.WithLabelValues(string(report.Status)).Inc()

	previous, ok := w.Report()
	if ok && previous.Equal(report) {
		w.config.Logger.Tracef("status %s unchanged", report)
		return report
	}
	if !ok {
		previous = status.Initial()
	}

	if err := w.publish(ctx, report); err != nil {
		w.config.Metrics.publishFailures.Inc()
		w.config.Logger.Errorf("cannot publish status %s: %v", report, err)
		return report
	}

	w.mu.Lock()
	w.published = &report
	w.mu.Unlock()

	w.config.Metrics.publishes.Inc()
	w.config.Metrics.setCurrent(report.Status)
	w.config.Logger.Infof("status changed to %s", report)
	w.waitDelivered(w.config.Hub.Publish(StatusChangedTopic, StatusChanged{
		Previous: previous,
		Current:  report,
	}))
	return report
}

// waitDelivered blocks until every subscriber has handled an
// announcement, or the dispatcher is stopping.
func (w *Dispatcher) waitDelivered(wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()
	select {
	case <-done:
	case <-w.catacomb.Dying():
	}
}

func (w *Dispatcher) publish(ctx context.Context, report status.Report) error {
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return w.config.Publisher.PublishStatus(ctx, report)
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, ErrPublishRefused)
		},
		NotifyFunc: func(err error, attempt int) {
			if attempt < w.config.RetryAttempts {
				w.config.Metrics.publishRetries.Inc()
			}
			w.config.Logger.Warningf("publishing status %s, attempt %d: %v", report, attempt, err)
		},
		Attempts:    w.config.RetryAttempts,
		Delay:       w.config.RetryDelay,
		MaxDelay:    w.config.RetryMaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       w.config.Clock,
		Stop:        w.catacomb.Dying(),
	})
	if retry.IsAttemptsExceeded(err) {
		return errors.Annotatef(retry.LastError(err), "giving up after %d attempts", w.config.RetryAttempts)
	}
	return errors.Trace(err)
}
