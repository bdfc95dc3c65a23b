// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package relation

import (
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/names/v5"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
)

// Registry tracks the relations currently established for the unit.
// It is safe for concurrent use, although the status dispatcher is
// expected to be its only writer.
type Registry struct {
	mu        sync.Mutex
	relations map[relation.Name]relation.Relation
}

// NewRegistry returns an empty registry; no relation is established.
func NewRegistry() *Registry {
	return &Registry{
		relations: make(map[relation.Name]relation.Relation),
	}
}

// Add records the named relation as established. Adding a relation that
// is already established updates the remote application name.
func (r *Registry) Add(name relation.Name, remoteApp string) error {
	if name == "" {
		return errors.NotValidf("empty relation name")
	}
	if remoteApp != "" && !names.IsValidApplication(remoteApp) {
		return errors.NotValidf("remote application name %q", remoteApp)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations[name] = relation.Relation{
		Name:              name,
		Established:       true,
		RemoteApplication: remoteApp,
	}
	return nil
}

// Remove marks the named relation as no longer established. Break
// notifications may arrive duplicated or out of order, so removing an
// unknown relation is not an error.
func (r *Registry) Remove(name relation.Name) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.relations, name)
}

// IsEstablished reports whether the named relation is established.
func (r *Registry) IsEstablished(name relation.Name) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.relations[name]
	return ok && rel.Established
}

// Relation returns the record for the named relation, if established.
func (r *Registry) Relation(name relation.Name) (relation.Relation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.relations[name]
	return rel, ok
}

// Snapshot returns a copy of every established relation, ordered by name
// so that callers see a stable view.
func (r *Registry) Snapshot() []relation.Relation {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]relation.Relation, 0, len(r.relations))
	for _, rel := range r.relations {
		result = append(result, rel)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
