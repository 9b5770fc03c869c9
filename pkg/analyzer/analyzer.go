package analyzer

import (
	"context"
	"fmt"
	"strings"
)

// Section names the manifest object a dependency was declared in.
type Section string

const (
	SectionDependencies    Section = "dependencies"
	SectionDevDependencies Section = "devDependencies"
)

// DependencyRequest is one declared dependency to check against the registry.
type DependencyRequest struct {
	Name       string  `json:"name"`
	Constraint string  `json:"constraint"` // as written in the manifest, e.g. "^17.0.0"
	Section    Section `json:"section"`
}

// Status is the freshness classification of a dependency.
type Status int

const (
	StatusUnknown Status = iota
	StatusUpToDate
	StatusOutdated
	StatusNewer
)

func (s Status) String() string {
	switch s {
	case StatusUpToDate:
		return "Up to date"
	case StatusOutdated:
		return "Outdated"
	case StatusNewer:
		return "Newer than latest"
	default:
		return "Unknown"
	}
}

// MarshalText renders the status by name in JSON reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText reads a status written by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{StatusUnknown, StatusUpToDate, StatusOutdated, StatusNewer} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// LookupResult is the outcome of a single registry lookup. Exactly one of
// Latest and Err is set.
type LookupResult struct {
	Index   int // position of Request in the input sequence
	Request DependencyRequest
	Latest  string
	Err     error
}

// Entry is a classified report row.
type Entry struct {
	Name       string  `json:"name"`
	Section    Section `json:"section"`
	Constraint string  `json:"constraint"`      // declared constraint, prefix included
	Current    string  `json:"current_version"` // declared version with the prefix stripped
	Latest     string  `json:"latest_version"`
	Status     Status  `json:"status"`
	Change     string  `json:"change,omitempty"` // major, minor, patch or prerelease when outdated
	Note       string  `json:"note,omitempty"`   // why the entry could not be classified
}

// Label renders an outdated entry as "name(current -> latest)".
func (e Entry) Label() string {
	return fmt.Sprintf("%s(%s -> %s)", e.Name, e.Current, e.Latest)
}

// ParseLabel recovers the name, current and latest versions from a label
// produced by Entry.Label.
func ParseLabel(label string) (name, current, latest string, err error) {
	open := strings.LastIndex(label, "(")
	if open <= 0 || !strings.HasSuffix(label, ")") {
		return "", "", "", fmt.Errorf("malformed label %q", label)
	}
	name = label[:open]
	current, latest, ok := strings.Cut(label[open+1:len(label)-1], " -> ")
	if !ok || current == "" || latest == "" {
		return "", "", "", fmt.Errorf("malformed label %q", label)
	}
	return name, current, latest, nil
}

// Report is the finished result of a check run.
type Report struct {
	Rows     []Entry `json:"rows"`
	Outdated []Entry `json:"outdated"` // rows with StatusOutdated, in row order
}

// OutdatedLabels returns the display labels of the outdated entries.
func (r Report) OutdatedLabels() []string {
	labels := make([]string, len(r.Outdated))
	for i, e := range r.Outdated {
		labels[i] = e.Label()
	}
	return labels
}

// Registry resolves the latest published version of a package.
type Registry interface {
	FetchLatest(ctx context.Context, name string) (string, error)
}
