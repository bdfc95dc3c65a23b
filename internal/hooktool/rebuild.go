// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooktool

import (
	"context"

	"github.com/juju/errors"

	"github.com/evershalik/oai-ran-du-k8s-operator/core/relation"
	"github.com/evershalik/oai-ran-du-k8s-operator/internal/requirement"
)

// RelationLister lists the relations the platform knows about.
type RelationLister interface {
	RelationIDs(ctx context.Context, name relation.Name) ([]string, error)
	RelationApplication(ctx context.Context, id string) (string, error)
}

// Registry is the part of the relation registry filled by Rebuild.
type Registry interface {
	Add(relation.Name, string) error
}

// Rebuild fills the registry from the platform's relation list for every
// endpoint declared by reqs. The relation with id skipID, if any, is
// ignored: during a relation-broken hook the platform still lists the
// relation that is going away.
func Rebuild(ctx context.Context, lister RelationLister, reqs *requirement.Set, registry Registry, skipID string) error {
	for _, req := range reqs.Requirements() {
		ids, err := lister.RelationIDs(ctx, req.Name)
		if err != nil {
			return errors.Annotatef(err, "listing %q relations", req.Name)
		}
		for _, id := range ids {
			if id == skipID {
				continue
			}
			app, err := lister.RelationApplication(ctx, id)
			if err != nil {
				return errors.Annotatef(err, "reading relation %q", id)
			}
			if err := registry.Add(req.Name, app); err != nil {
				return errors.Trace(err)
			}
		}
	}
	return nil
}
