// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hooktool talks to the platform through the hook tools it puts
// on the PATH of every hook process.
package hooktool

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/kballard/go-shellquote"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
	"github.com/evershalik/oai-ran-du-k8s-operator/core/status"
)

var logger = loggo.GetLogger("du.hooktool")

// CommandRunner runs a hook tool and returns its standard output.
type CommandRunner interface {
	RunCommand(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs hook tools as child processes.
type ExecRunner struct{}

// RunCommand is part of the CommandRunner interface.
func (ExecRunner) RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	if logger.IsTraceEnabled() {
		logger.Tracef("running %s", shellquote.Join(append([]string{name}, args...)...))
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Annotatef(err, "running %s: %s", name, msg)
		}
		return nil, errors.Annotatef(err, "running %s", name)
	}
	return stdout.Bytes(), nil
}

// Client wraps the hook tools used by the charm.
type Client struct {
	runner CommandRunner
}

// NewClient returns a client running hook tools through runner.
func NewClient(runner CommandRunner) *Client {
	return &Client{runner: runner}
}

// StatusSet sets the workload status of the unit.
func (c *Client) StatusSet(ctx context.Context, st status.Status, message string) error {
	if !status.ValidWorkloadStatus(st) {
		return errors.NotValidf("workload status %q", st)
	}
	args := []string{string(st)}
	if message != "" {
		args = append(args, message)
	}
	_, err := c.runner.RunCommand(ctx, "status-set", args...)
	return errors.Trace(err)
}

// RelationIDs returns the ids of every relation established on the
// named endpoint, such as "fiveg_f1:3".
func (c *Client) RelationIDs(ctx context.Context, name relation.Name) ([]string, error) {
	out, err := c.runner.RunCommand(ctx, "relation-ids", string(name), "--format=json")
	if err != nil {
		return nil, errors.Trace(err)
	}
	var ids []string
	if err := decode(out, &ids); err != nil {
		return nil, errors.Annotatef(err, "parsing relation ids for %q", name)
	}
	return ids, nil
}

// RelationApplication returns the name of the remote application of the
// relation with the given id.
func (c *Client) RelationApplication(ctx context.Context, id string) (string, error) {
	out, err := c.runner.RunCommand(ctx, "relation-list", "-r", id, "--app", "--format=json")
	if err != nil {
		return "", errors.Trace(err)
	}
	var app string
	if err := decode(out, &app); err != nil {
		return "", errors.Annotatef(err, "parsing remote application of %q", id)
	}
	return app, nil
}

// ConfigGet returns every charm configuration value, including defaults.
func (c *Client) ConfigGet(ctx context.Context) (map[string]any, error) {
	out, err := c.runner.RunCommand(ctx, "config-get", "--all", "--format=json")
	if err != nil {
		return nil, errors.Trace(err)
	}
	attrs := make(map[string]any)
	if err := decode(out, &attrs); err != nil {
		return nil, errors.Annotate(err, "parsing charm config")
	}
	return attrs, nil
}

// decode treats empty output and a JSON null as the zero value.
func decode(out []byte, target any) error {
	out = bytes.TrimSpace(out)
	if len(out) == 0 || bytes.Equal(out, []byte("null")) {
		return nil
	}
	return json.Unmarshal(out, target)
}
