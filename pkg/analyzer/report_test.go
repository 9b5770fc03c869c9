package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Scenario(t *testing.T) {
	server := mockRegistry(t, map[string]RegistryPackageInfo{
		"left-pad": latestInfo("1.0.0"),
		"react":    latestInfo("18.2.0"),
	})
	pool, err := NewPool(newTestRegistry(t, server.URL), PoolOptions{Concurrency: 2})
	require.NoError(t, err)

	report, err := pool.Check(context.Background(), []DependencyRequest{
		{Name: "left-pad", Constraint: "1.0.0", Section: SectionDependencies},
		{Name: "react", Constraint: "^17.0.0", Section: SectionDependencies},
	})
	require.NoError(t, err)

	require.Len(t, report.Rows, 2)
	assert.Equal(t, "left-pad", report.Rows[0].Name)
	assert.Equal(t, "1.0.0", report.Rows[0].Current)
	assert.Equal(t, "1.0.0", report.Rows[0].Latest)
	assert.Equal(t, StatusUpToDate, report.Rows[0].Status)

	assert.Equal(t, "react", report.Rows[1].Name)
	assert.Equal(t, "17.0.0", report.Rows[1].Current)
	assert.Equal(t, "^17.0.0", report.Rows[1].Constraint)
	assert.Equal(t, "18.2.0", report.Rows[1].Latest)
	assert.Equal(t, StatusOutdated, report.Rows[1].Status)
	assert.Equal(t, "major", report.Rows[1].Change)

	assert.Equal(t, []string{"react(17.0.0 -> 18.2.0)"}, report.OutdatedLabels())
}

func TestBuild_GhostPackageKeptAsUnknown(t *testing.T) {
	server := mockRegistry(t, map[string]RegistryPackageInfo{
		"left-pad": latestInfo("1.1.0"),
		"react":    latestInfo("18.2.0"),
	})
	pool, err := NewPool(newTestRegistry(t, server.URL), PoolOptions{Concurrency: 3})
	require.NoError(t, err)

	report, err := pool.Check(context.Background(), []DependencyRequest{
		{Name: "left-pad", Constraint: "~1.0.0"},
		{Name: "ghost-pkg", Constraint: "1.0.0"},
		{Name: "react", Constraint: "^18.2.0"},
	})
	require.NoError(t, err)

	require.Len(t, report.Rows, 3)
	assert.Equal(t, StatusOutdated, report.Rows[0].Status)
	assert.Equal(t, "minor", report.Rows[0].Change)

	ghost := report.Rows[1]
	assert.Equal(t, "ghost-pkg", ghost.Name)
	assert.Equal(t, StatusUnknown, ghost.Status)
	assert.Equal(t, "not found", ghost.Note)
	assert.Empty(t, ghost.Latest)

	assert.Equal(t, StatusUpToDate, report.Rows[2].Status)
	assert.Len(t, report.Outdated, 1)
}

func TestBuild_RestoresInputOrder(t *testing.T) {
	reqs, versions := makeRequests(8)
	results := make([]LookupResult, 0, len(reqs))
	for i := len(reqs) - 1; i >= 0; i-- {
		results = append(results, LookupResult{Index: i, Request: reqs[i], Latest: versions[reqs[i].Name]})
	}

	report := Build(results)
	require.Len(t, report.Rows, len(reqs))
	for i, row := range report.Rows {
		assert.Equal(t, reqs[i].Name, row.Name)
	}
}

func TestBuild_OutdatedIsOrderedSubsequence(t *testing.T) {
	reqs, versions := makeRequests(9)
	results := make([]LookupResult, 0, len(reqs))
	// interleave so arrival order is neither input nor reversed order
	for _, i := range []int{4, 0, 8, 2, 6, 1, 5, 3, 7} {
		results = append(results, LookupResult{Index: i, Request: reqs[i], Latest: versions[reqs[i].Name]})
	}

	report := Build(results)
	var want []Entry
	for _, row := range report.Rows {
		if row.Status == StatusOutdated {
			want = append(want, row)
		}
	}
	assert.Equal(t, want, report.Outdated)
	assert.Len(t, report.Outdated, 4)
}

func TestBuild_UnknownEntries(t *testing.T) {
	results := []LookupResult{
		{Index: 0, Request: DependencyRequest{Name: "range", Constraint: ">=1.0.0 <2.0.0"}, Latest: "1.5.0"},
		{Index: 1, Request: DependencyRequest{Name: "odd-latest", Constraint: "1.0.0"}, Latest: "banana"},
		{Index: 2, Request: DependencyRequest{Name: "offline", Constraint: "^2.0.0"}, Err: errors.New("dial tcp: refused")},
		{Index: 3, Request: DependencyRequest{Name: "junk", Constraint: "1.0.0"}, Err: &FetchError{Kind: FetchMalformed, Package: "junk"}},
		{Index: 4, Request: DependencyRequest{Name: "ahead", Constraint: "3.0.0-beta.1"}, Latest: "2.9.0"},
	}

	report := Build(results)
	require.Len(t, report.Rows, 5)
	assert.Equal(t, StatusUnknown, report.Rows[0].Status)
	assert.Equal(t, "invalid current version", report.Rows[0].Note)
	assert.Equal(t, ">=1.0.0 <2.0.0", report.Rows[0].Current)

	assert.Equal(t, StatusUnknown, report.Rows[1].Status)
	assert.Equal(t, "invalid latest version", report.Rows[1].Note)

	assert.Equal(t, StatusUnknown, report.Rows[2].Status)
	assert.Equal(t, "fetch failed", report.Rows[2].Note)
	assert.Equal(t, "2.0.0", report.Rows[2].Current)

	assert.Equal(t, "malformed response", report.Rows[3].Note)

	assert.Equal(t, StatusNewer, report.Rows[4].Status)
	assert.Empty(t, report.Outdated)
}

func TestParseLabel(t *testing.T) {
	entry := Entry{Name: "@scope/pkg", Current: "1.0.0-rc.1", Latest: "1.0.0"}
	name, current, latest, err := ParseLabel(entry.Label())
	require.NoError(t, err)
	assert.Equal(t, "@scope/pkg", name)
	assert.Equal(t, "1.0.0-rc.1", current)
	assert.Equal(t, "1.0.0", latest)

	for _, bad := range []string{"", "react", "react(17.0.0)", "(1 -> 2)", "react(17.0.0 -> 18.2.0"} {
		_, _, _, err := ParseLabel(bad)
		assert.Error(t, err, bad)
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "Up to date", StatusUpToDate.String())
	assert.Equal(t, "Outdated", StatusOutdated.String())
	assert.Equal(t, "Newer than latest", StatusNewer.String())
	assert.Equal(t, "Unknown", StatusUnknown.String())
	assert.Equal(t, "Unknown", Status(42).String())
}

func TestStatus_UnmarshalText(t *testing.T) {
	var s Status
	require.NoError(t, s.UnmarshalText([]byte("Newer than latest")))
	assert.Equal(t, StatusNewer, s)
	assert.Error(t, s.UnmarshalText([]byte("Downgraded")))
}
