// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package requirement

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
)

// Role is the role of a relation endpoint in the charm metadata.
type Role string

const (
	RoleRequirer Role = "requirer"
	RoleProvider Role = "provider"
	RolePeer     Role = "peer"
)

// Endpoint is a relation endpoint declared by the charm.
type Endpoint struct {
	Name      relation.Name
	Role      Role
	Interface string
	Optional  bool
}

// Metadata holds the parts of the charm metadata that matter to status
// reconciliation. Endpoints keep their declaration order.
type Metadata struct {
	Name      string
	Endpoints []Endpoint
}

type endpointDoc struct {
	Interface string `yaml:"interface"`
	Optional  bool   `yaml:"optional"`
	Limit     int    `yaml:"limit"`
}

var roleKeys = []struct {
	key  string
	role Role
}{
	{"requires", RoleRequirer},
	{"provides", RoleProvider},
	{"peers", RolePeer},
}

// ParseMetadata reads charm metadata (metadata.yaml or charmcraft.yaml).
// A plain map would lose the order of the endpoints, so the document is
// walked as a node tree.
func ParseMetadata(data []byte) (Metadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Metadata{}, errors.Annotate(err, "parsing charm metadata")
	}
	if len(doc.Content) == 0 {
		return Metadata{}, errors.NotValidf("empty charm metadata")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Metadata{}, errors.NotValidf("charm metadata of kind %d", root.Kind)
	}

	var meta Metadata
	if node := mappingValue(root, "name"); node != nil {
		meta.Name = node.Value
	}
	seen := set.NewStrings()
	for _, rk := range roleKeys {
		node := mappingValue(root, rk.key)
		if node == nil || node.Tag == "!!null" {
			continue
		}
		if node.Kind != yaml.MappingNode {
			return Metadata{}, errors.NotValidf("%q section", rk.key)
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			name := node.Content[i].Value
			var ep endpointDoc
			if err := node.Content[i+1].Decode(&ep); err != nil {
				return Metadata{}, errors.Annotatef(err, "parsing endpoint %q", name)
			}
			if seen.Contains(name) {
				return Metadata{}, errors.NotValidf("duplicate endpoint %q", name)
			}
			seen.Add(name)
			meta.Endpoints = append(meta.Endpoints, Endpoint{
				Name:      relation.Name(name),
				Role:      rk.role,
				Interface: ep.Interface,
				Optional:  ep.Optional,
			})
		}
	}
	return meta, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// Known returns the names of every endpoint declared by the charm.
func (m Metadata) Known() set.Strings {
	known := set.NewStrings()
	for _, ep := range m.Endpoints {
		known.Add(string(ep.Name))
	}
	return known
}

// FromMetadata builds the requirement set for a charm. Without explicit
// names, every non-optional "requires" endpoint is mandatory. With explicit
// names, exactly those are mandatory, in the given order, and every other
// declared endpoint is optional.
func FromMetadata(meta Metadata, required ...relation.Name) (*Set, error) {
	known := meta.Known()
	var reqs []Requirement
	if len(required) == 0 {
		for _, ep := range meta.Endpoints {
			reqs = append(reqs, Requirement{
				Name:     ep.Name,
				Required: ep.Role == RoleRequirer && !ep.Optional,
			})
		}
		return NewSet(known, reqs...)
	}

	mandatory := set.NewStrings()
	for _, name := range required {
		reqs = append(reqs, Requirement{Name: name, Required: true})
		mandatory.Add(string(name))
	}
	for _, ep := range meta.Endpoints {
		if mandatory.Contains(string(ep.Name)) {
			continue
		}
		reqs = append(reqs, Requirement{Name: ep.Name})
	}
	return NewSet(known, reqs...)
}
