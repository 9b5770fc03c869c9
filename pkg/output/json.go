package output

import (
	"encoding/json"

	"github.com/sambabib/depfresh/pkg/analyzer"
)

// GenerateJSONReport converts the report to indented JSON
func GenerateJSONReport(report analyzer.Report) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
