package nix

import (
	"github.com/cockroachdb/errors"

	"github.com/jacentio/nixcore/units"
)

var (
	// ErrDuplicateName is returned when a sibling of the same kind already
	// uses a name.
	ErrDuplicateName = errors.New("nix: duplicate name")

	// ErrNotFound is returned when an entity does not exist in the file.
	ErrNotFound = errors.New("nix: not found")

	// ErrUnitMismatch is returned when units cannot be scaled to each other.
	ErrUnitMismatch = units.ErrUnitMismatch

	// ErrInvalidArgument is returned for malformed input: empty names, bad
	// ticks or intervals, mismatched vector lengths, invalid units.
	ErrInvalidArgument = errors.New("nix: invalid argument")

	// ErrIndexOutOfRange is returned when an index is outside its container.
	ErrIndexOutOfRange = errors.New("nix: index out of range")

	// ErrOutOfBounds is returned when an offset and count exceed an array's
	// extent.
	ErrOutOfBounds = errors.New("nix: region out of bounds")

	// ErrDanglingReference is returned when a required weak reference points
	// at a deleted entity.
	ErrDanglingReference = errors.New("nix: dangling reference")
)

// checkName validates an entity name.
func checkName(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidArgument, "name must not be empty")
	}
	if !units.NameCheck(name) {
		return errors.WithHintf(
			errors.Wrapf(ErrInvalidArgument, "name %q contains '/'", name),
			"use %q instead", units.SanitizeName(name))
	}
	return nil
}

func checkType(typ string) error {
	if typ == "" {
		return errors.Wrap(ErrInvalidArgument, "type must not be empty")
	}
	return nil
}

// checkUnit sanitizes u and verifies it is an SI unit. An empty result means
// no unit.
func checkUnit(u string, atomic bool) (string, error) {
	u = units.Sanitize(u)
	if u == "" {
		return "", nil
	}
	valid := units.IsSIUnit(u)
	if atomic {
		valid = units.IsAtomicSIUnit(u)
	}
	if !valid {
		return "", errors.Mark(errors.Wrapf(ErrInvalidArgument, "invalid unit %q", u), units.ErrInvalidUnit)
	}
	return u, nil
}
