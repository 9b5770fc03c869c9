package analyzer

import (
	"errors"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Build classifies lookup results and orders them by their position in the
// original request sequence. Failed lookups stay in the report as Unknown rows.
func Build(results []LookupResult) Report {
	sorted := make([]LookupResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	report := Report{
		Rows:     make([]Entry, 0, len(sorted)),
		Outdated: []Entry{},
	}
	for _, res := range sorted {
		entry := classifyResult(res)
		report.Rows = append(report.Rows, entry)
		if entry.Status == StatusOutdated {
			report.Outdated = append(report.Outdated, entry)
		}
	}
	return report
}

func classifyResult(res LookupResult) Entry {
	entry := Entry{
		Name:       res.Request.Name,
		Section:    res.Request.Section,
		Constraint: res.Request.Constraint,
		Current:    res.Request.Constraint,
		Latest:     res.Latest,
		Status:     StatusUnknown,
	}
	current, constraintErr := ParseConstraint(res.Request.Constraint)
	if constraintErr == nil {
		entry.Current = current.Version.Original()
	}

	if res.Err != nil {
		var fe *FetchError
		if errors.As(res.Err, &fe) {
			entry.Note = fe.Kind.String()
		} else {
			entry.Note = FetchTransport.String()
		}
		return entry
	}

	status, err := Compare(res.Request.Constraint, res.Latest)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			entry.Note = "invalid " + pe.Side + " version"
		}
		return entry
	}
	entry.Status = status
	if status == StatusOutdated {
		if latest, err := semver.StrictNewVersion(strings.TrimSpace(res.Latest)); err == nil {
			entry.Change = ChangeKind(current.Version, latest)
		}
	}
	return entry
}
