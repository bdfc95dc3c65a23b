// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// du-status derives the workload status of a DU unit from its relations
// and publishes it. It runs once per hook.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/juju/pubsub/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
	"github.com/evershalik/oai-ran-du-k8s-operator/core/status"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/charmconfig"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/hook"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/hooktool"
	internalrelation "github.com/evershalik/oai-ran-du-k8s-operator/internal/relation"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/requirement"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/worker/statusdispatcher"
)

var logger = loggo.GetLogger("du.cmd")

const (
	envCharmDir      = "JUJU_CHARM_DIR"
	envLoggingConfig = "JUJU_LOGGING_CONFIG"

	exitOK     = 0
	exitError  = 1
	exitConfig = 2
)

func main() {
	cmd := &statusCommand{
		getenv: os.Getenv,
		runner: hooktool.ExecRunner{},
		clock:  clock.WallClock,
	}
	os.Exit(run(cmd, os.Args[1:], os.Stderr))
}

// run parses args into cmd, runs it and returns the process exit code.
func run(cmd *statusCommand, args []string, stderr io.Writer) int {
	f := gnuflag.NewFlagSet("du-status", gnuflag.ContinueOnError)
	f.SetOutput(stderr)
	cmd.SetFlags(f)
	if err := f.Parse(true, args); err != nil {
		return exitConfig
	}
	if err := cmd.Init(f.Args()); err != nil {
		fmt.Fprintf(stderr, "ERROR %v\n", err)
		return exitConfig
	}
	err := cmd.Run(context.Background())
	switch {
	case err == nil:
		return exitOK
	case requirement.IsConfigurationError(err):
		fmt.Fprintf(stderr, "ERROR %v\n", err)
		return exitConfig
	default:
		fmt.Fprintf(stderr, "ERROR %v\n", err)
		return exitError
	}
}

type statusCommand struct {
	metadataPath    string
	require         string
	retryAttempts   int
	retryDelay      time.Duration
	metricsTextfile string
	loggingConfig   string

	required []relation.Name

	getenv func(string) string
	runner hooktool.CommandRunner
	clock  clock.Clock
}

// SetFlags registers the command line flags.
func (c *statusCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.metadataPath, "metadata", "", "path to the charm metadata (default $JUJU_CHARM_DIR/metadata.yaml)")
	f.StringVar(&c.require, "require", "", "comma separated relations to require instead of the metadata defaults")
	f.IntVar(&c.retryAttempts, "retry-attempts", 0, "attempts to publish a status before giving up")
	f.DurationVar(&c.retryDelay, "retry-delay", 0, "delay before the first status publish retry")
	f.StringVar(&c.metricsTextfile, "metrics-textfile", "", "write metrics to this file on exit")
	f.StringVar(&c.loggingConfig, "logging-config", "", "logging configuration (default $JUJU_LOGGING_CONFIG)")
}

// Init validates the flags.
func (c *statusCommand) Init(args []string) error {
	if len(args) > 0 {
		return errors.Errorf("unrecognized args: %q", args)
	}
	if c.retryAttempts < 0 {
		return errors.NotValidf("negative --retry-attempts")
	}
	if c.retryDelay < 0 {
		return errors.NotValidf("negative --retry-delay")
	}
	if c.metadataPath == "" {
		c.metadataPath = filepath.Join(c.getenv(envCharmDir), "metadata.yaml")
	}
	c.required = nil
	for _, name := range strings.Split(c.require, ",") {
		if name = strings.TrimSpace(name); name != "" {
			c.required = append(c.required, relation.Name(name))
		}
	}
	return nil
}

// Run handles the current hook.
func (c *statusCommand) Run(ctx context.Context) error {
	if err := c.configureLogging(); err != nil {
		return errors.Trace(err)
	}

	reqs, err := c.requirements()
	if err != nil {
		return errors.Trace(err)
	}
	info, err := hook.FromEnvironment(c.getenv)
	if err != nil {
		return errors.Annotate(err, "reading hook environment")
	}
	logger.Debugf("running %s hook", info)

	client := hooktool.NewClient(c.runner)
	attrs, err := client.ConfigGet(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := charmconfig.Parse(attrs); charmconfig.IsInvalid(err) {
		logger.Warningf("%v", err)
		return errors.Trace(client.StatusSet(ctx, status.Blocked, err.Error()))
	} else if err != nil {
		return errors.Trace(err)
	}

	metrics := statusdispatcher.NewMetricsCollector()
	err = c.reconcile(ctx, client, reqs, info, metrics)
	if c.metricsTextfile != "" {
		gatherer := prometheus.NewRegistry()
		gatherer.MustRegister(metrics)
		if werr := prometheus.WriteToTextfile(c.metricsTextfile, gatherer); werr != nil {
			logger.Errorf("writing metrics: %v", werr)
		}
	}
	return errors.Trace(err)
}

func (c *statusCommand) configureLogging() error {
	config := c.loggingConfig
	if config == "" {
		config = c.getenv(envLoggingConfig)
	}
	if config == "" {
		return nil
	}
	return errors.Annotate(loggo.ConfigureLoggers(config), "configuring logging")
}

func (c *statusCommand) requirements() (*requirement.Set, error) {
	data, err := os.ReadFile(c.metadataPath)
	if err != nil {
		return nil, errors.Annotate(err, "reading charm metadata")
	}
	meta, err := requirement.ParseMetadata(data)
	if err != nil {
		return nil, errors.Annotatef(err, "parsing %s", c.metadataPath)
	}
	return requirement.FromMetadata(meta, c.required...)
}

// reconcile rebuilds the relation registry from the platform, applies
// the current hook to it and publishes the resulting status.
func (c *statusCommand) reconcile(
	ctx context.Context,
	client *hooktool.Client,
	reqs *requirement.Set,
	info hook.Info,
	metrics *statusdispatcher.Collector,
) error {
	registry := internalrelation.NewRegistry()
	var skipID string
	if info.Kind == hook.RelationBroken {
		skipID = info.RelationID
	}
	if err := hooktool.Rebuild(ctx, client, reqs, registry, skipID); err != nil {
		return errors.Trace(err)
	}

	hub := pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
		Logger: loggo.GetLogger("du.hub"),
	})
	unsubscribe := hub.Subscribe(statusdispatcher.StatusChangedTopic, func(_ string, data interface{}) {
		change, ok := data.(statusdispatcher.StatusChanged)
		if !ok {
			return
		}
		if change.Current.Status == status.Active {
			logger.Infof("all required relations established")
		}
	})
	defer unsubscribe()

	dispatcher, err := statusdispatcher.NewWorker(statusdispatcher.Config{
		Registry:      registry,
		Requirements:  reqs,
		Publisher:     hooktool.NewPublisher(client),
		Hub:           hub,
		Metrics:       metrics,
		Clock:         c.clock,
		Logger:        loggo.GetLogger("du.statusdispatcher"),
		RetryAttempts: c.retryAttempts,
		RetryDelay:    c.retryDelay,
	})
	if err != nil {
		return errors.Trace(err)
	}

	report, err := c.applyHook(ctx, dispatcher, registry, info)
	dispatcher.Kill()
	if werr := dispatcher.Wait(); err == nil {
		err = werr
	}
	if err != nil {
		return errors.Trace(err)
	}

	if report.Status == status.Error {
		return errors.Errorf("unit in error: %s", report.Reason)
	}
	if published, ok := dispatcher.Report(); !ok || !published.Equal(report) {
		return errors.Errorf("status %s not published", report)
	}
	return nil
}

// applyHook feeds the hook to the dispatcher. Hooks other than joined and
// broken relation hooks carry no change; the registry rebuilt from the
// platform already reflects them.
func (c *statusCommand) applyHook(
	ctx context.Context,
	dispatcher *statusdispatcher.Dispatcher,
	registry *internalrelation.Registry,
	info hook.Info,
) (status.Report, error) {
	switch info.Kind {
	case hook.RelationJoined:
		return dispatcher.RelationJoined(ctx, info.RelationName, info.RemoteApplication)
	case hook.RelationBroken:
		// Another relation on the same endpoint keeps it established.
		if !registry.IsEstablished(info.RelationName) {
			return dispatcher.RelationBroken(ctx, info.RelationName)
		}
	}
	return dispatcher.Refresh(ctx)
}
