// Package units implements the SI unit algebra used to compare and scale
// physical coordinates.
//
// An atomic unit is one SI base or derived unit with an optional metric prefix
// and an optional integer power, e.g. "mV^-2". A compound unit joins two or
// more atomic units with '*' or '/', e.g. "mV/cm^2*kg". A '/' negates the power
// of the term that immediately follows it and nothing else.
package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnitMismatch is returned when two units are not scalable versions of
	// the same SI unit.
	ErrUnitMismatch = errors.New("nix: units are not scalable")

	// ErrInvalidUnit is returned when a string is not a valid SI unit.
	ErrInvalidUnit = errors.New("nix: invalid SI unit")
)

const (
	prefixPattern = `(da|Y|Z|E|P|T|G|M|k|h|d|c|m|u|n|p|f|a|z|y)`
	basePattern   = `(mol|cd|Hz|Pa|Wb|lm|lx|Bq|Gy|Sv|kat|Ohm|dB|rad|m|g|s|A|K|N|J|W|C|V|F|S|T|H|B|l|L|%)`
	powerPattern  = `(\^[+-]?[1-9][0-9]*)`
	atomicPattern = prefixPattern + `?` + basePattern + powerPattern + `?`
)

var (
	atomicRe   = regexp.MustCompile(`^` + prefixPattern + `?` + basePattern + powerPattern + `?$`)
	compoundRe = regexp.MustCompile(`^` + atomicPattern + `((\*|/)` + atomicPattern + `)+$`)
)

// prefixExponents maps metric prefixes to their power of ten.
var prefixExponents = map[string]int{
	"y": -24, "z": -21, "a": -18, "f": -15, "p": -12, "n": -9, "u": -6, "m": -3,
	"c": -2, "d": -1, "": 0, "da": 1, "h": 2, "k": 3, "M": 6, "G": 9, "T": 12,
	"P": 15, "E": 18, "Z": 21, "Y": 24,
}

// IsAtomicSIUnit reports whether u is a single, optionally prefixed and
// powered, SI unit.
func IsAtomicSIUnit(u string) bool {
	return atomicRe.MatchString(u)
}

// IsCompoundSIUnit reports whether u joins at least two atomic SI units with
// '*' or '/'.
func IsCompoundSIUnit(u string) bool {
	return compoundRe.MatchString(u)
}

// IsSIUnit reports whether u is an atomic or compound SI unit.
func IsSIUnit(u string) bool {
	return IsAtomicSIUnit(u) || IsCompoundSIUnit(u)
}

// SplitUnit splits an atomic unit into prefix, base unit and power. An empty
// power means 1.
func SplitUnit(u string) (prefix, base, power string, err error) {
	m := atomicRe.FindStringSubmatch(u)
	if m == nil {
		return "", "", "", errors.Wrapf(ErrInvalidUnit, "%q is not an atomic SI unit", u)
	}
	return m[1], m[2], strings.TrimPrefix(m[3], "^"), nil
}

// SplitCompoundUnit splits a compound unit into its atomic terms. A term that
// follows '/' has its power negated, so "mOhm/m" yields ["mOhm", "m^-1"].
// Strings without separators are returned as a single term.
func SplitCompoundUnit(u string) []string {
	var terms []string
	negate := false
	start := 0
	flush := func(end int) {
		term := u[start:end]
		if negate {
			term = negatePower(term)
		}
		terms = append(terms, term)
	}
	for i := 0; i < len(u); i++ {
		if u[i] != '*' && u[i] != '/' {
			continue
		}
		flush(i)
		negate = u[i] == '/'
		start = i + 1
	}
	flush(len(u))
	return terms
}

func negatePower(term string) string {
	prefix, base, power, err := SplitUnit(term)
	if err != nil {
		return term
	}
	switch {
	case power == "":
		power = "-1"
	case strings.HasPrefix(power, "-"):
		power = power[1:]
	default:
		power = "-" + strings.TrimPrefix(power, "+")
	}
	return prefix + base + "^" + power
}

// Scaling returns the factor that converts a value given in from into a value
// given in to. Both units must share base units and powers term by term.
func Scaling(from, to string) (float64, error) {
	switch {
	case IsAtomicSIUnit(from) && IsAtomicSIUnit(to):
		return atomicScaling(from, to)
	case IsCompoundSIUnit(from) && IsCompoundSIUnit(to):
		fromTerms := SplitCompoundUnit(from)
		toTerms := SplitCompoundUnit(to)
		if len(fromTerms) != len(toTerms) {
			return 0, errors.Wrapf(ErrUnitMismatch, "%q and %q have different term counts", from, to)
		}
		scaling := 1.0
		for i := range fromTerms {
			s, err := atomicScaling(fromTerms[i], toTerms[i])
			if err != nil {
				return 0, err
			}
			scaling *= s
		}
		return scaling, nil
	}
	return 0, errors.Wrapf(ErrUnitMismatch, "cannot scale %q to %q", from, to)
}

func atomicScaling(from, to string) (float64, error) {
	fromPrefix, fromBase, fromPower, err := SplitUnit(from)
	if err != nil {
		return 0, errors.Mark(err, ErrUnitMismatch)
	}
	toPrefix, toBase, toPower, err := SplitUnit(to)
	if err != nil {
		return 0, errors.Mark(err, ErrUnitMismatch)
	}
	fp, tp := powerValue(fromPower), powerValue(toPower)
	if fromBase != toBase || fp != tp {
		return 0, errors.Wrapf(ErrUnitMismatch, "%q and %q are not scalable versions of the same unit", from, to)
	}
	exp := (prefixExponents[fromPrefix] - prefixExponents[toPrefix]) * fp
	return math.Pow10(exp), nil
}

func powerValue(power string) int {
	if power == "" {
		return 1
	}
	p, err := strconv.Atoi(power)
	if err != nil {
		return 1
	}
	return p
}

// IsScalable reports whether a and b are scalable versions of the same unit.
func IsScalable(a, b string) bool {
	_, err := Scaling(a, b)
	return err == nil
}

// AreScalable reports whether the units at every position of as and bs are
// scalable. Slices of different length are never scalable.
func AreScalable(as, bs []string) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !IsScalable(as[i], bs[i]) {
			return false
		}
	}
	return true
}

// IsSetAtSamePos reports whether every position of as and bs is either set in
// both or empty in both.
func IsSetAtSamePos(as, bs []string) bool {
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if (as[i] == "") != (bs[i] == "") {
			return false
		}
	}
	return true
}
