// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package relation

// Name is the endpoint name of a relation as declared in the charm
// metadata.
type Name string

// String returns the endpoint name.
func (n Name) String() string {
	return string(n)
}

const (
	// Database is the endpoint integrating with the database charm.
	Database Name = "database"

	// Certificates is the endpoint integrating with the TLS certificate
	// authority.
	Certificates Name = "certificates"

	// FivegF1 is the F1 endpoint integrating the DU with its peer CU.
	FivegF1 Name = "fiveg_f1"
)

// Relation records the state of one relation endpoint of the unit.
type Relation struct {
	// Name is the endpoint name.
	Name Name

	// Established is true once the platform has notified a join and
	// no break has been seen since.
	Established bool

	// RemoteApplication is the name of the application on the other
	// side, when known.
	RemoteApplication string
}
