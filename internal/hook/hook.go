// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hook describes the hook the platform is currently running for
// the unit, as read from the hook environment.
package hook

import (
	"fmt"
	"path"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/names/v5"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
)

// Kind enumerates the different kinds of hooks that exist.
type Kind string

const (
	Install       Kind = "install"
	Start         Kind = "start"
	ConfigChanged Kind = "config-changed"
	UpgradeCharm  Kind = "upgrade-charm"
	UpdateStatus  Kind = "update-status"
	Stop          Kind = "stop"

	RelationCreated  Kind = "relation-created"
	RelationJoined   Kind = "relation-joined"
	RelationChanged  Kind = "relation-changed"
	RelationDeparted Kind = "relation-departed"
	RelationBroken   Kind = "relation-broken"
)

var unitKinds = map[Kind]bool{
	Install:       true,
	Start:         true,
	ConfigChanged: true,
	UpgradeCharm:  true,
	UpdateStatus:  true,
	Stop:          true,
}

var relationKinds = []Kind{
	RelationCreated,
	RelationJoined,
	RelationChanged,
	RelationDeparted,
	RelationBroken,
}

// IsRelation returns whether the Kind represents a relation hook.
func (kind Kind) IsRelation() bool {
	for _, k := range relationKinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Info holds details of the hook being run. Not all fields are relevant
// to all Kind values.
type Info struct {
	Kind Kind

	// RelationName is the endpoint of the relation the hook is about. It
	// is only set when Kind indicates a relation hook.
	RelationName relation.Name

	// RelationID identifies the relation, as in "fiveg_f1:3". It is
	// only set when Kind indicates a relation hook.
	RelationID string

	// RemoteApplication is the application on the other side of the
	// relation, when the platform provides it.
	RemoteApplication string
}

// Validate returns an error if the info is not valid.
func (hi Info) Validate() error {
	if unitKinds[hi.Kind] {
		return nil
	}
	if !hi.Kind.IsRelation() {
		return errors.NotValidf("hook kind %q", hi.Kind)
	}
	if hi.RelationName == "" {
		return errors.NotValidf("%q hook without relation name", hi.Kind)
	}
	if hi.RemoteApplication != "" && !names.IsValidApplication(hi.RemoteApplication) {
		return errors.NotValidf("remote application %q", hi.RemoteApplication)
	}
	return nil
}

// String is used in log messages.
func (hi Info) String() string {
	if hi.Kind.IsRelation() {
		return fmt.Sprintf("%s-%s", hi.RelationName, hi.Kind)
	}
	return string(hi.Kind)
}

// Environment variables set by the platform for every hook.
const (
	EnvDispatchPath = "JUJU_DISPATCH_PATH"
	EnvHookName     = "JUJU_HOOK_NAME"
	EnvRelation     = "JUJU_RELATION"
	EnvRelationID   = "JUJU_RELATION_ID"
	EnvRemoteApp    = "JUJU_REMOTE_APP"
	EnvUnitName     = "JUJU_UNIT_NAME"
)

// FromEnvironment builds the hook info from the hook environment. The
// hook name comes from JUJU_DISPATCH_PATH ("hooks/<name>") or, failing
// that, JUJU_HOOK_NAME.
func FromEnvironment(getenv func(string) string) (Info, error) {
	hookName := path.Base(getenv(EnvDispatchPath))
	if hookName == "." || hookName == "/" {
		hookName = getenv(EnvHookName)
	}
	if hookName == "" {
		return Info{}, errors.NotFoundf("hook name in environment")
	}

	info, err := parseHookName(hookName)
	if err != nil {
		return Info{}, errors.Trace(err)
	}
	if info.Kind.IsRelation() {
		if rel := getenv(EnvRelation); rel != "" {
			info.RelationName = relation.Name(rel)
		}
		info.RelationID = getenv(EnvRelationID)
		info.RemoteApplication = getenv(EnvRemoteApp)
	}
	return info, errors.Trace(info.Validate())
}

func parseHookName(name string) (Info, error) {
	if unitKinds[Kind(name)] {
		return Info{Kind: Kind(name)}, nil
	}
	for _, kind := range relationKinds {
		suffix := "-" + string(kind)
		if rel, ok := strings.CutSuffix(name, suffix); ok && rel != "" {
			return Info{Kind: kind, RelationName: relation.Name(rel)}, nil
		}
	}
	return Info{}, errors.NotValidf("hook name %q", name)
}
