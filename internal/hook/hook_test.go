// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hook_test

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/hook"
)

type hookSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&hookSuite{})

func env(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func (s *hookSuite) TestRelationJoinedFromDispatchPath(c *gc.C) {
	info, err := hook.FromEnvironment(env(map[string]string{
		hook.EnvDispatchPath: "hooks/fiveg_f1-relation-joined",
		hook.EnvRelation:     "fiveg_f1",
		hook.EnvRelationID:   "fiveg_f1:7",
		hook.EnvRemoteApp:    "oai-ran-cu-k8s",
	}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(info, jc.DeepEquals, hook.Info{
		Kind:              hook.RelationJoined,
		RelationName:      relation.FivegF1,
		RelationID:        "fiveg_f1:7",
		RemoteApplication: "oai-ran-cu-k8s",
	})
	c.Check(info.String(), gc.Equals, "fiveg_f1-relation-joined")
}

func (s *hookSuite) TestRelationBrokenFromHookName(c *gc.C) {
	info, err := hook.FromEnvironment(env(map[string]string{
		hook.EnvHookName: "certificates-relation-broken",
	}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(info.Kind, gc.Equals, hook.RelationBroken)
	c.Check(info.RelationName, gc.Equals, relation.Certificates)
	c.Check(info.RemoteApplication, gc.Equals, "")
}

func (s *hookSuite) TestRelationNameWithHyphens(c *gc.C) {
	info, err := hook.FromEnvironment(env(map[string]string{
		hook.EnvDispatchPath: "hooks/metrics-endpoint-relation-departed",
	}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(info.Kind, gc.Equals, hook.RelationDeparted)
	c.Check(info.RelationName, gc.Equals, relation.Name("metrics-endpoint"))
}

func (s *hookSuite) TestUnitHook(c *gc.C) {
	info, err := hook.FromEnvironment(env(map[string]string{
		hook.EnvDispatchPath: "hooks/config-changed",
		hook.EnvRelation:     "ignored",
	}))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(info, jc.DeepEquals, hook.Info{Kind: hook.ConfigChanged})
	c.Check(info.Kind.IsRelation(), jc.IsFalse)
}

func (s *hookSuite) TestMissingHookName(c *gc.C) {
	_, err := hook.FromEnvironment(env(nil))
	c.Assert(err, jc.ErrorIs, errors.NotFound)
}

func (s *hookSuite) TestUnknownHook(c *gc.C) {
	_, err := hook.FromEnvironment(env(map[string]string{hook.EnvHookName: "leader-elected-ish"}))
	c.Assert(err, gc.ErrorMatches, `hook name "leader-elected-ish" not valid`)

	_, err = hook.FromEnvironment(env(map[string]string{hook.EnvHookName: "-relation-joined"}))
	c.Assert(err, jc.ErrorIs, errors.NotValid)
}

func (s *hookSuite) TestInvalidRemoteApplication(c *gc.C) {
	_, err := hook.FromEnvironment(env(map[string]string{
		hook.EnvHookName:  "database-relation-joined",
		hook.EnvRemoteApp: "Mongo_DB",
	}))
	c.Assert(err, gc.ErrorMatches, `remote application "Mongo_DB" not valid`)
}

func (s *hookSuite) TestValidate(c *gc.C) {
	c.Check(hook.Info{Kind: hook.Install}.Validate(), jc.ErrorIsNil)
	c.Check(hook.Info{Kind: "bogus"}.Validate(), gc.ErrorMatches, `hook kind "bogus" not valid`)
	c.Check(hook.Info{Kind: hook.RelationJoined}.Validate(), gc.ErrorMatches,
		`"relation-joined" hook without relation name not valid`)
}
