// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package requirement

import (
	"fmt"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
)

// Requirement declares whether a relation endpoint must be established
// for the unit to be considered operational.
type Requirement struct {
	Name     relation.Name
	Required bool
}

// ConfigurationError is returned when a requirement set cannot be built
// from its declaration. The process must refuse to start.
type ConfigurationError struct {
	Reason string
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid requirement set: %s", e.Reason)
}

// Is allows errors.Is(err, errors.NotValid) to match configuration errors.
func (e *ConfigurationError) Is(target error) bool {
	return target == errors.NotValid
}

// IsConfigurationError reports whether err was caused by an invalid
// requirement declaration.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// Set is the immutable, ordered declaration of relation requirements.
// The order is the declaration order and is used to pick the reason of
// a blocked status deterministically.
type Set struct {
	reqs  []Requirement
	index map[relation.Name]int
}

// NewSet builds a requirement set. Every requirement must name a relation
// endpoint present in known.
func NewSet(known set.Strings, reqs ...Requirement) (*Set, error) {
	s := &Set{
		reqs:  make([]Requirement, 0, len(reqs)),
		index: make(map[relation.Name]int, len(reqs)),
	}
	for _, req := range reqs {
		if req.Name == "" {
			return nil, &ConfigurationError{Reason: "empty relation name"}
		}
		if !known.Contains(string(req.Name)) {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("relation %q is not declared by the charm", req.Name),
			}
		}
		if _, ok := s.index[req.Name]; ok {
			return nil, &ConfigurationError{
				Reason: fmt.Sprintf("relation %q declared more than once", req.Name),
			}
		}
		s.index[req.Name] = len(s.reqs)
		s.reqs = append(s.reqs, req)
	}
	return s, nil
}

// Default returns the requirement set of the reference deployment, where
// the database, the certificate authority and the CU peer are all
// mandatory.
func Default() *Set {
	names := []relation.Name{relation.Database, relation.Certificates, relation.FivegF1}
	known := set.NewStrings()
	reqs := make([]Requirement, len(names))
	for i, name := range names {
		known.Add(string(name))
		reqs[i] = Requirement{Name: name, Required: true}
	}
	s, err := NewSet(known, reqs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Requirements returns a copy of every requirement in declaration order.
func (s *Set) Requirements() []Requirement {
	result := make([]Requirement, len(s.reqs))
	copy(result, s.reqs)
	return result
}

// RequiredNames returns the names of the mandatory relations in
// declaration order.
func (s *Set) RequiredNames() []relation.Name {
	var result []relation.Name
	for _, req := range s.reqs {
		if req.Required {
			result = append(result, req.Name)
		}
	}
	return result
}

// Declared reports whether the set knows about the named relation,
// whether or not it is required.
func (s *Set) Declared(name relation.Name) bool {
	_, ok := s.index[name]
	return ok
}

// IsRequired reports whether the named relation is mandatory.
func (s *Set) IsRequired(name relation.Name) bool {
	i, ok := s.index[name]
	return ok && s.reqs[i].Required
}

// Len returns the number of declared relations.
func (s *Set) Len() int {
	return len(s.reqs)
}
