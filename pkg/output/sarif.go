package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sambabib/depfresh/pkg/analyzer"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SarifReport represents the top-level SARIF report structure
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun represents a single run of the analysis tool
type SarifRun struct {
	Tool        SarifTool         `json:"tool"`
	Results     []SarifResult     `json:"results"`
	Invocations []SarifInvocation `json:"invocations"`
}

// SarifTool represents the tool that performed the analysis
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver represents the driver of the tool
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule represents a rule that was evaluated during the analysis
type SarifRule struct {
	ID               string       `json:"id"`
	ShortDescription SarifMessage `json:"shortDescription"`
	FullDescription  SarifMessage `json:"fullDescription"`
	Help             SarifMessage `json:"help"`
}

// SarifResult represents a result of the analysis
type SarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    SarifMessage      `json:"message"`
	Locations  []SarifLocation   `json:"locations"`
	Properties map[string]string `json:"properties,omitempty"`
}

// SarifMessage represents a message in the SARIF report
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation represents a location in the code
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation points at the manifest file
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
}

// SarifArtifactLocation represents the location of an artifact
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// SarifInvocation represents an invocation of the tool
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	StartTimeUtc        string `json:"startTimeUtc"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

// SarifOptions describes the run a SARIF report is generated for.
type SarifOptions struct {
	ManifestPath string
	ToolVersion  string
	StartedAt    time.Time
	// Level maps a change kind (major, minor, patch, prerelease) to a SARIF
	// level; "none" drops the result.
	Level func(change string) string
}

var sarifRules = []SarifRule{
	{
		ID:               "outdated-major",
		ShortDescription: SarifMessage{Text: "Major version update available"},
		FullDescription:  SarifMessage{Text: "A major version update is available for this dependency, which may include breaking changes."},
		Help:             SarifMessage{Text: "Consider updating with caution and review the changelog for breaking changes."},
	},
	{
		ID:               "outdated-minor",
		ShortDescription: SarifMessage{Text: "Minor version update available"},
		FullDescription:  SarifMessage{Text: "A minor version update is available for this dependency, which may include new features."},
		Help:             SarifMessage{Text: "Consider updating to get new features."},
	},
	{
		ID:               "outdated-patch",
		ShortDescription: SarifMessage{Text: "Patch update available"},
		FullDescription:  SarifMessage{Text: "A patch or pre-release update is available for this dependency, which may include bug fixes."},
		Help:             SarifMessage{Text: "Consider updating to get bug fixes."},
	},
	{
		ID:               "unchecked",
		ShortDescription: SarifMessage{Text: "Dependency could not be checked"},
		FullDescription:  SarifMessage{Text: "The registry lookup failed or the declared version is not a single semantic version."},
		Help:             SarifMessage{Text: "Verify the package name and the declared version."},
	},
}

// GenerateSarifReport converts outdated and unchecked entries to SARIF format
func GenerateSarifReport(report analyzer.Report, opts SarifOptions) ([]byte, error) {
	level := opts.Level
	if level == nil {
		level = func(string) string { return "note" }
	}
	location := []SarifLocation{{
		PhysicalLocation: SarifPhysicalLocation{
			ArtifactLocation: SarifArtifactLocation{URI: opts.ManifestPath},
		},
	}}

	results := make([]SarifResult, 0, len(report.Rows))
	for _, entry := range report.Rows {
		var result SarifResult
		switch entry.Status {
		case analyzer.StatusOutdated:
			lvl := level(entry.Change)
			if lvl == "none" {
				continue
			}
			ruleID := "outdated-patch"
			if entry.Change == "major" || entry.Change == "minor" {
				ruleID = "outdated-" + entry.Change
			}
			result = SarifResult{
				RuleID:  ruleID,
				Level:   lvl,
				Message: SarifMessage{Text: fmt.Sprintf("%s: current version %s, latest version %s", entry.Name, entry.Current, entry.Latest)},
			}
		case analyzer.StatusUnknown:
			result = SarifResult{
				RuleID:  "unchecked",
				Level:   "warning",
				Message: SarifMessage{Text: fmt.Sprintf("%s: %s could not be checked (%s)", entry.Name, entry.Constraint, entry.Note)},
			}
		default:
			continue
		}
		result.Locations = location
		result.Properties = map[string]string{
			"package":    entry.Name,
			"section":    string(entry.Section),
			"constraint": entry.Constraint,
		}
		results = append(results, result)
	}

	now := time.Now().UTC()
	started := opts.StartedAt.UTC()
	if opts.StartedAt.IsZero() {
		started = now
	}
	version := opts.ToolVersion
	if version == "" {
		version = "dev"
	}
	sarifReport := SarifReport{
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Version: "2.1.0",
		Runs: []SarifRun{
			{
				Tool: SarifTool{
					Driver: SarifDriver{
						Name:           "depfresh",
						Version:        version,
						InformationURI: "https://github.com/sambabib/depfresh",
						Rules:          sarifRules,
					},
				},
				Results: results,
				Invocations: []SarifInvocation{
					{
						ExecutionSuccessful: true,
						StartTimeUtc:        started.Format(time.RFC3339),
						EndTimeUtc:          now.Format(time.RFC3339),
					},
				},
			},
		},
	}

	return json.MarshalIndent(sarifReport, "", "  ")
}
