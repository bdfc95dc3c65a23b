// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package charmconfig validates the DU charm configuration.
package charmconfig

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/juju/environschema.v1"
)

const (
	F1InterfaceNameKey = "f1-interface-name"
	F1PortKey          = "f1-port"
	MCCKey             = "mcc"
	MNCKey             = "mnc"
	SSTKey             = "sst"
	TACKey             = "tac"
)

var configSchema = environschema.Fields{
	F1InterfaceNameKey: {
		Description: "Name of the network interface used for F1 traffic.",
		Type:        environschema.Tstring,
		Mandatory:   true,
	},
	F1PortKey: {
		Description: "Number of the port used for F1 traffic.",
		Type:        environschema.Tint,
		Mandatory:   true,
	},
	MCCKey: {
		Description: "Mobile Country Code.",
		Type:        environschema.Tstring,
		Mandatory:   true,
	},
	MNCKey: {
		Description: "Mobile Network Code.",
		Type:        environschema.Tstring,
		Mandatory:   true,
	},
	SSTKey: {
		Description: "Slice Service Type.",
		Type:        environschema.Tint,
		Mandatory:   true,
	},
	TACKey: {
		Description: "Tracking Area Code.",
		Type:        environschema.Tint,
		Mandatory:   true,
	},
}

var configFields = func() schema.Fields {
	fs, _, err := configSchema.ValidationSchema()
	if err != nil {
		panic(err)
	}
	return fs
}()

var (
	mccPattern = regexp.MustCompile(`^\d{3}$`)
	mncPattern = regexp.MustCompile(`^\d{2}$`)
)

// Schema returns the configuration schema of the charm.
func Schema() environschema.Fields {
	return configSchema
}

// Config holds the validated DU configuration.
type Config struct {
	F1InterfaceName string
	F1Port          int
	MCC             string
	MNC             string
	SST             int
	TAC             int
}

// InvalidError lists the configuration keys holding invalid values.
type InvalidError struct {
	Keys []string
}

// Error is part of the error interface. The message is shown to the
// operator as the blocked status message.
func (e *InvalidError) Error() string {
	quoted := make([]string, len(e.Keys))
	for i, key := range e.Keys {
		quoted[i] = fmt.Sprintf("'%s'", key)
	}
	return fmt.Sprintf("The following configurations are not valid: [%s]", strings.Join(quoted, ", "))
}

// Is allows InvalidError to satisfy errors.NotValid.
func (e *InvalidError) Is(target error) bool {
	return target == errors.NotValid
}

// IsInvalid reports whether err is, or wraps, an *InvalidError.
func IsInvalid(err error) bool {
	var target *InvalidError
	return errors.As(err, &target)
}

// Parse validates attrs, as returned by config-get, and returns the DU
// configuration. Every invalid key is reported in a single *InvalidError.
func Parse(attrs map[string]any) (Config, error) {
	values := make(map[string]any, len(configSchema))
	var invalid []string
	for key, attr := range configSchema {
		v, err := coerce(attr, attrs[key], key)
		if err != nil {
			invalid = append(invalid, key)
			continue
		}
		values[key] = v
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Config{}, &InvalidError{Keys: invalid}
	}
	return Config{
		F1InterfaceName: values[F1InterfaceNameKey].(string),
		F1Port:          values[F1PortKey].(int),
		MCC:             values[MCCKey].(string),
		MNC:             values[MNCKey].(string),
		SST:             values[SSTKey].(int),
		TAC:             values[TACKey].(int),
	}, nil
}

func coerce(attr environschema.Attr, value any, key string) (any, error) {
	if value == nil {
		if attr.Mandatory {
			return nil, errors.NotFoundf("%q", key)
		}
		return nil, nil
	}
	if f, ok := value.(float64); ok && f != math.Trunc(f) {
		return nil, errors.NotValidf("non integral %q", key)
	}
	v, err := configFields[key].Coerce(value, []string{key})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := checkValue(key, v); err != nil {
		return nil, errors.Trace(err)
	}
	return v, nil
}

func checkValue(key string, v any) error {
	switch key {
	case F1InterfaceNameKey:
		if v.(string) == "" {
			return errors.NotValidf("empty %q", key)
		}
	case F1PortKey:
		return checkRange(key, v.(int), 1, 65535)
	case SSTKey:
		return checkRange(key, v.(int), 1, 4)
	case TACKey:
		return checkRange(key, v.(int), 1, 16777215)
	case MCCKey:
		return checkPattern(key, v.(string), mccPattern)
	case MNCKey:
		return checkPattern(key, v.(string), mncPattern)
	}
	return nil
}

func checkRange(key string, v, min, max int) error {
	if v < min || v > max {
		return errors.NotValidf("%q value %d outside %d..%d", key, v, min, max)
	}
	return nil
}

func checkPattern(key, v string, pattern *regexp.Regexp) error {
	if !pattern.MatchString(v) {
		return errors.NotValidf("%q value %q", key, v)
	}
	return nil
}
