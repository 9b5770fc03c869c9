package analyzer

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		current string
		latest  string
		want    Status
	}{
		{"1.0.0", "1.0.0", StatusUpToDate},
		{"^17.0.0", "18.2.0", StatusOutdated},
		{"~4.17.20", "4.17.21", StatusOutdated},
		{"2.0.0", "1.9.9", StatusNewer},
		{"1.10.0", "1.9.0", StatusNewer},
		{"1.0.0-beta.1", "1.0.0", StatusOutdated},
		{"1.0.0-alpha", "1.0.0-alpha.1", StatusOutdated},
		{"1.0.0-rc.2", "1.0.0-rc.10", StatusOutdated},
		{"1.0.0+build.1", "1.0.0+build.2", StatusUpToDate},
		{" ^3.1.4 ", "3.1.4", StatusUpToDate},
	}
	for _, tt := range tests {
		t.Run(tt.current+"_vs_"+tt.latest, func(t *testing.T) {
			got, err := Compare(tt.current, tt.latest)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_InverseAndReflexive(t *testing.T) {
	versions := []string{
		"0.0.1", "0.1.0", "1.0.0-alpha", "1.0.0-alpha.1", "1.0.0-beta",
		"1.0.0", "1.0.1", "1.2.0", "2.0.0-rc.1", "2.0.0", "10.0.0",
	}
	inverse := map[Status]Status{
		StatusOutdated: StatusNewer,
		StatusNewer:    StatusOutdated,
		StatusUpToDate: StatusUpToDate,
	}
	for _, a := range versions {
		self, err := Compare(a, a)
		require.NoError(t, err)
		assert.Equal(t, StatusUpToDate, self, "compare(%s, %s)", a, a)

		for _, b := range versions {
			ab, err := Compare(a, b)
			require.NoError(t, err)
			ba, err := Compare(b, a)
			require.NoError(t, err)
			assert.Equal(t, inverse[ab], ba, "compare(%s, %s) = %s but compare(%s, %s) = %s", a, b, ab, b, a, ba)
		}
	}
}

func TestCompare_ParseErrors(t *testing.T) {
	_, err := Compare("latest", "1.0.0")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "current", pe.Side)
	assert.Equal(t, "latest", pe.Value)

	_, err = Compare("1.0.0", "not-a-version")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "latest", pe.Side)
	assert.Equal(t, "not-a-version", pe.Value)

	// ranges and partial versions are not single versions
	for _, declared := range []string{">=1.0.0 <2.0.0", "^17", "*", "git+https://github.com/a/b.git", "1.x", ""} {
		_, err := Compare(declared, "1.0.0")
		assert.Error(t, err, declared)
	}
}

func TestParseConstraint_PrefixDoesNotChangeVersion(t *testing.T) {
	for _, v := range []string{"1.2.3", "0.0.0", "4.5.6-beta.2", "7.8.9+sha.abc"} {
		bare, err := ParseConstraint(v)
		require.NoError(t, err)
		assert.Equal(t, PrefixNone, bare.Prefix)

		caret, err := ParseConstraint("^" + v)
		require.NoError(t, err)
		assert.Equal(t, PrefixCaret, caret.Prefix)
		assert.True(t, bare.Version.Equal(caret.Version))
		assert.Equal(t, bare.Version.Original(), caret.Version.Original())

		tilde, err := ParseConstraint("~" + v)
		require.NoError(t, err)
		assert.Equal(t, PrefixTilde, tilde.Prefix)
		assert.True(t, bare.Version.Equal(tilde.Version))
	}
}

func TestConstraint_Rewrite(t *testing.T) {
	tests := map[string]string{
		"^17.0.0":  "^18.2.0",
		"~4.17.20": "~18.2.0",
		"1.0.0":    "18.2.0",
	}
	for declared, want := range tests {
		c, err := ParseConstraint(declared)
		require.NoError(t, err)
		assert.Equal(t, want, c.Rewrite("18.2.0"))
		assert.Equal(t, declared, c.String())
	}
}

func TestChangeKind(t *testing.T) {
	tests := []struct {
		current, latest, want string
	}{
		{"1.0.0", "2.0.0", "major"},
		{"1.0.0", "1.1.0", "minor"},
		{"1.0.0", "1.0.1", "patch"},
		{"1.0.0-beta", "1.0.0", "prerelease"},
		{"1.0.0", "1.0.0", ""},
	}
	for _, tt := range tests {
		c := semver.MustParse(tt.current)
		l := semver.MustParse(tt.latest)
		assert.Equal(t, tt.want, ChangeKind(c, l), "%s -> %s", tt.current, tt.latest)
	}
}
