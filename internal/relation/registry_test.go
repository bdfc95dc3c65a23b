// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package relation_test

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	corerelation "github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/relation"
)

type registrySuite struct {
	testing.IsolationSuite

	registry *relation.Registry
}

var _ = gc.Suite(&registrySuite{})

func (s *registrySuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.registry = relation.NewRegistry()
}

func (s *registrySuite) TestEmpty(c *gc.C) {
	c.Assert(s.registry.IsEstablished(corerelation.Certificates), jc.IsFalse)
	c.Assert(s.registry.Snapshot(), gc.HasLen, 0)
}

func (s *registrySuite) TestAdd(c *gc.C) {
	err := s.registry.Add(corerelation.Certificates, "self-signed-certificates")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.registry.IsEstablished(corerelation.Certificates), jc.IsTrue)

	rel, ok := s.registry.Relation(corerelation.Certificates)
	c.Assert(ok, jc.IsTrue)
	c.Check(rel, jc.DeepEquals, corerelation.Relation{
		Name:              corerelation.Certificates,
		Established:       true,
		RemoteApplication: "self-signed-certificates",
	})
}

func (s *registrySuite) TestAddIsIdempotentAndUpdatesRemote(c *gc.C) {
	c.Assert(s.registry.Add(corerelation.FivegF1, "oai-ran-cu-k8s"), jc.ErrorIsNil)
	c.Assert(s.registry.Add(corerelation.FivegF1, "oai-ran-cu-k8s"), jc.ErrorIsNil)
	c.Assert(s.registry.Snapshot(), gc.HasLen, 1)

	c.Assert(s.registry.Add(corerelation.FivegF1, "cu-app"), jc.ErrorIsNil)
	rel, _ := s.registry.Relation(corerelation.FivegF1)
	c.Check(rel.RemoteApplication, gc.Equals, "cu-app")
}

func (s *registrySuite) TestAddWithoutRemoteApplication(c *gc.C) {
	c.Assert(s.registry.Add(corerelation.Database, ""), jc.ErrorIsNil)
	c.Assert(s.registry.IsEstablished(corerelation.Database), jc.IsTrue)
}

func (s *registrySuite) TestAddInvalid(c *gc.C) {
	err := s.registry.Add("", "mongodb-k8s")
	c.Check(err, jc.ErrorIs, errors.NotValid)
	c.Check(err, gc.ErrorMatches, "empty relation name not valid")

	err = s.registry.Add(corerelation.Database, "Not_An_App")
	c.Check(err, jc.ErrorIs, errors.NotValid)
	c.Check(s.registry.IsEstablished(corerelation.Database), jc.IsFalse)
}

func (s *registrySuite) TestRemove(c *gc.C) {
	c.Assert(s.registry.Add(corerelation.FivegF1, "cu-app"), jc.ErrorIsNil)
	s.registry.Remove(corerelation.FivegF1)
	c.Assert(s.registry.IsEstablished(corerelation.FivegF1), jc.IsFalse)
	_, ok := s.registry.Relation(corerelation.FivegF1)
	c.Assert(ok, jc.IsFalse)
}

func (s *registrySuite) TestRemoveUnknownIsNoop(c *gc.C) {
	c.Assert(s.registry.Add(corerelation.Database, "mongodb-k8s"), jc.ErrorIsNil)
	s.registry.Remove(corerelation.FivegF1)
	s.registry.Remove(corerelation.FivegF1)
	c.Assert(s.registry.Snapshot(), gc.HasLen, 1)
}

func (s *registrySuite) TestSnapshotIsOrderedCopy(c *gc.C) {
	c.Assert(s.registry.Add(corerelation.FivegF1, "cu-app"), jc.ErrorIsNil)
	c.Assert(s.registry.Add(corerelation.Certificates, "ca-app"), jc.ErrorIsNil)
	c.Assert(s.registry.Add(corerelation.Database, "db-app"), jc.ErrorIsNil)

	snap := s.registry.Snapshot()
	c.Assert(snap, gc.HasLen, 3)
	c.Check(snap[0].Name, gc.Equals, corerelation.Certificates)
	c.Check(snap[1].Name, gc.Equals, corerelation.Database)
	c.Check(snap[2].Name, gc.Equals, corerelation.FivegF1)

	snap[0].Established = false
	c.Check(s.registry.IsEstablished(corerelation.Certificates), jc.IsTrue)
}

func (s *registrySuite) TestConcurrentAccess(c *gc.C) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.registry.Add(corerelation.Database, "db-app")
		}()
		go func() {
			defer wg.Done()
			_ = s.registry.IsEstablished(corerelation.Database)
			_ = s.registry.Snapshot()
		}()
	}
	wg.Wait()
	c.Assert(s.registry.IsEstablished(corerelation.Database), jc.IsTrue)
}
