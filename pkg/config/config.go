package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sambabib/depfresh/pkg/analyzer"
)

// FileName is the configuration file searched for in the project directory and its parents.
const FileName = ".depfresh.yaml"

// Config represents the configuration for depfresh
type Config struct {
	// Registry base URL
	Registry string `yaml:"registry" validate:"required,http_url"`

	// Lookups in flight at once, 0 means one per CPU
	Concurrency int `yaml:"concurrency" validate:"min=0"`

	// Timeout for a single registry request
	Timeout time.Duration `yaml:"timeout" validate:"min=0"`

	// Extra attempts for lookups that failed with a transport error
	Retries int `yaml:"retries" validate:"min=0,max=10"`

	// Registry requests per second, 0 disables pacing
	RateLimit float64 `yaml:"rateLimit" validate:"min=0"`

	// Manifest sections to check
	Sections []string `yaml:"sections" validate:"omitempty,dive,oneof=dependencies devDependencies"`

	// SARIF levels for each kind of available update
	Severity struct {
		Major string `yaml:"major" validate:"oneof=error warning note none"` // Default: error
		Minor string `yaml:"minor" validate:"oneof=error warning note none"` // Default: warning
		Patch string `yaml:"patch" validate:"oneof=error warning note none"` // Default: note
	} `yaml:"severity"`

	// Output configuration
	Output struct {
		Format string `yaml:"format" validate:"oneof=text json sarif"`
		File   string `yaml:"file"` // Output file path (stdout if empty)
	} `yaml:"output"`

	// Ignore specific packages
	IgnorePackages []string `yaml:"ignorePackages" validate:"dive,pkg_pattern"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	config := &Config{
		Registry:    analyzer.DefaultNpmRegistryURL,
		Concurrency: analyzer.DefaultConcurrency(),
		Timeout:     analyzer.DefaultRequestTimeout,
	}

	config.Severity.Major = "error"
	config.Severity.Minor = "warning"
	config.Severity.Patch = "note"

	config.Output.Format = "text"

	return config
}

// LoadConfig loads the configuration from the specified file path
// If no path is provided, it looks for .depfresh.yaml in the current directory
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = FileName
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
	}
	return readConfig(configPath)
}

// FindAndLoadConfig searches for a config file in the project directory and its parents
func FindAndLoadConfig(projectPath string) (*Config, error) {
	currentDir, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("error resolving %s: %w", projectPath, err)
	}
	for {
		configPath := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return readConfig(configPath)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return DefaultConfig(), nil
}

func readConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// IsPackageIgnored checks if a package should be ignored based on the configuration.
// Entries are exact names or path.Match patterns such as "@types/*".
func (c *Config) IsPackageIgnored(packageName string) bool {
	for _, ignoredPackage := range c.IgnorePackages {
		if ignoredPackage == packageName {
			return true
		}
		if ok, _ := path.Match(ignoredPackage, packageName); ok {
			return true
		}
	}
	return false
}

// FilterRequests drops requests for ignored packages and sections that are not checked.
func (c *Config) FilterRequests(reqs []analyzer.DependencyRequest) []analyzer.DependencyRequest {
	sections := make(map[analyzer.Section]bool, len(c.Sections))
	for _, s := range c.Sections {
		sections[analyzer.Section(s)] = true
	}
	kept := make([]analyzer.DependencyRequest, 0, len(reqs))
	for _, r := range reqs {
		if c.IsPackageIgnored(r.Name) {
			continue
		}
		if len(sections) > 0 && !sections[r.Section] {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// GetSeverityForUpdate returns the configured severity level for the given update type
func (c *Config) GetSeverityForUpdate(updateType string) string {
	switch updateType {
	case "major":
		return c.Severity.Major
	case "minor":
		return c.Severity.Minor
	case "patch", "prerelease":
		return c.Severity.Patch
	default:
		return "note"
	}
}
