package analyzer

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Prefix is the range operator in front of a declared version.
type Prefix int

const (
	PrefixNone Prefix = iota
	PrefixCaret
	PrefixTilde
)

func (p Prefix) String() string {
	switch p {
	case PrefixCaret:
		return "^"
	case PrefixTilde:
		return "~"
	default:
		return ""
	}
}

// Constraint is a declared constraint split into its range prefix and version.
type Constraint struct {
	Prefix  Prefix
	Version *semver.Version
}

// ParseConstraint splits a declared constraint such as "^17.0.0" into its prefix
// and a strictly parsed semantic version.
func ParseConstraint(declared string) (Constraint, error) {
	s := strings.TrimSpace(declared)
	prefix := PrefixNone
	switch {
	case strings.HasPrefix(s, "^"):
		prefix = PrefixCaret
		s = s[1:]
	case strings.HasPrefix(s, "~"):
		prefix = PrefixTilde
		s = s[1:]
	}
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{Prefix: prefix, Version: v}, nil
}

// Rewrite returns the constraint that pins latest while keeping the original prefix.
func (c Constraint) Rewrite(latest string) string {
	return c.Prefix.String() + latest
}

func (c Constraint) String() string {
	if c.Version == nil {
		return c.Prefix.String()
	}
	return c.Prefix.String() + c.Version.Original()
}

// ParseError reports a version string that is not a semantic version.
type ParseError struct {
	Side  string // "current" or "latest"
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s version %q: %v", e.Side, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Compare classifies a declared version against the registry's latest version.
// A leading ^ or ~ on current is ignored.
func Compare(current, latest string) (Status, error) {
	c, err := ParseConstraint(current)
	if err != nil {
		return StatusUnknown, &ParseError{Side: "current", Value: current, Err: err}
	}
	l, err := semver.StrictNewVersion(strings.TrimSpace(latest))
	if err != nil {
		return StatusUnknown, &ParseError{Side: "latest", Value: latest, Err: err}
	}
	return classify(c.Version, l), nil
}

func classify(current, latest *semver.Version) Status {
	switch current.Compare(latest) {
	case -1:
		return StatusOutdated
	case 1:
		return StatusNewer
	default:
		return StatusUpToDate
	}
}

// ChangeKind names the most significant component that differs between current
// and latest: "major", "minor", "patch" or "prerelease". It returns "" when the
// versions are equal in precedence.
func ChangeKind(current, latest *semver.Version) string {
	switch {
	case current.Major() != latest.Major():
		return "major"
	case current.Minor() != latest.Minor():
		return "minor"
	case current.Patch() != latest.Patch():
		return "patch"
	case current.Prerelease() != latest.Prerelease():
		return "prerelease"
	default:
		return ""
	}
}
