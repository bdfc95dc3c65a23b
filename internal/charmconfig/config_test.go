// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charmconfig_test

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/evershalik/oai-ran-du-k8s-operator/internal/charmconfig"
)

type configSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&configSuite{})

func validAttrs() map[string]any {
	return map[string]any{
		"f1-interface-name": "f1",
		"f1-port":           float64(2152),
		"mcc":               "001",
		"mnc":               "01",
		"sst":               float64(1),
		"tac":               float64(1),
	}
}

func (s *configSuite) TestParseValid(c *gc.C) {
	cfg, err := charmconfig.Parse(validAttrs())
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(cfg, jc.DeepEquals, charmconfig.Config{
		F1InterfaceName: "f1",
		F1Port:          2152,
		MCC:             "001",
		MNC:             "01",
		SST:             1,
		TAC:             1,
	})
}

func (s *configSuite) TestParseAcceptsInts(c *gc.C) {
	attrs := validAttrs()
	attrs["f1-port"] = 38472
	attrs["tac"] = 16777215
	cfg, err := charmconfig.Parse(attrs)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cfg.F1Port, gc.Equals, 38472)
	c.Check(cfg.TAC, gc.Equals, 16777215)
}

func (s *configSuite) TestParseInvalid(c *gc.C) {
	for i, test := range []struct {
		about  string
		key    string
		value  any
		expect string
	}{{
		about:  "empty interface name",
		key:    "f1-interface-name",
		value:  "",
		expect: `The following configurations are not valid: \['f1-interface-name'\]`,
	}, {
		about:  "port zero",
		key:    "f1-port",
		value:  float64(0),
		expect: `The following configurations are not valid: \['f1-port'\]`,
	}, {
		about:  "port too large",
		key:    "f1-port",
		value:  float64(65536),
		expect: `The following configurations are not valid: \['f1-port'\]`,
	}, {
		about:  "fractional port",
		key:    "f1-port",
		value:  2152.5,
		expect: `The following configurations are not valid: \['f1-port'\]`,
	}, {
		about:  "short mcc",
		key:    "mcc",
		value:  "01",
		expect: `The following configurations are not valid: \['mcc'\]`,
	}, {
		about:  "numeric mcc",
		key:    "mcc",
		value:  float64(1),
		expect: `The following configurations are not valid: \['mcc'\]`,
	}, {
		about:  "long mnc",
		key:    "mnc",
		value:  "001",
		expect: `The following configurations are not valid: \['mnc'\]`,
	}, {
		about:  "sst out of range",
		key:    "sst",
		value:  float64(5),
		expect: `The following configurations are not valid: \['sst'\]`,
	}, {
		about:  "tac out of range",
		key:    "tac",
		value:  float64(16777216),
		expect: `The following configurations are not valid: \['tac'\]`,
	}, {
		about:  "missing tac",
		key:    "tac",
		value:  nil,
		expect: `The following configurations are not valid: \['tac'\]`,
	}} {
		c.Logf("test %d: %s", i, test.about)
		attrs := validAttrs()
		if test.value == nil {
			delete(attrs, test.key)
		} else {
			attrs[test.key] = test.value
		}
		_, err := charmconfig.Parse(attrs)
		c.Check(err, gc.ErrorMatches, test.expect)
		c.Check(err, jc.ErrorIs, errors.NotValid)
		c.Check(charmconfig.IsInvalid(err), jc.IsTrue)
	}
}

func (s *configSuite) TestParseReportsEveryInvalidKeySorted(c *gc.C) {
	attrs := validAttrs()
	attrs["tac"] = float64(0)
	attrs["mcc"] = "abc"
	attrs["f1-port"] = float64(-1)
	_, err := charmconfig.Parse(attrs)
	c.Assert(err, gc.ErrorMatches, `The following configurations are not valid: \['f1-port', 'mcc', 'tac'\]`)
}

func (s *configSuite) TestSchemaIsMandatory(c *gc.C) {
	fields := charmconfig.Schema()
	c.Assert(fields, gc.HasLen, 6)
	for name, attr := range fields {
		c.Check(attr.Mandatory, jc.IsTrue, gc.Commentf("%s", name))
	}
}
