package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sambabib/depfresh/pkg/analyzer"
	"github.com/sambabib/depfresh/pkg/config"
	"github.com/sambabib/depfresh/pkg/logger"
	"github.com/sambabib/depfresh/pkg/manifest"
	"github.com/sambabib/depfresh/pkg/output"
	"github.com/sambabib/depfresh/pkg/prompt"
)

const selectPrompt = "Pick the dependencies you want to update"

var (
	checkPath      string
	format         string // output format: text, json or sarif
	outputFile     string
	registryURL    string
	concurrency    int
	timeout        time.Duration
	retries        int
	updateDeps     bool
	assumeYes      bool
	failOnOutdated bool
)

// isTerminal is replaced in tests.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// checkCmd represents the check subcommand
var checkCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"analyze"},
	Short:   "Report outdated dependencies",
	Long:    "Look up the latest published version of every dependency in package.json, report which ones are outdated and optionally update them.",
	Args:    cobra.NoArgs,
	RunE:    runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkPath, "path", "p", ".", "Path to project directory to check")
	checkCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or sarif")
	checkCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the report to a file instead of stdout")
	checkCmd.Flags().StringVar(&registryURL, "registry", "", "Registry base URL")
	checkCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Registry lookups in flight at once, 0 for one per CPU (default from config)")
	checkCmd.Flags().DurationVar(&timeout, "timeout", 0, "Timeout for a single registry request (default 10s)")
	checkCmd.Flags().IntVar(&retries, "retries", 0, "Extra attempts for lookups that fail with a network error")
	checkCmd.Flags().BoolVarP(&updateDeps, "update", "u", false, "Select outdated dependencies and update package.json")
	checkCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "With --update, update every outdated dependency without prompting")
	checkCmd.Flags().BoolVar(&failOnOutdated, "fail-on-outdated", false, "Exit with status 1 when a dependency is outdated")
}

func runCheck(cmd *cobra.Command, args []string) error {
	started := time.Now()
	cfg, err := loadCheckConfig(cmd)
	if err != nil {
		return err
	}

	pkgFile := filepath.Join(checkPath, manifest.FileName)
	if _, err := os.Stat(pkgFile); err != nil {
		return fmt.Errorf("no %s found in %s", manifest.FileName, checkPath)
	}
	logger.Debugf("Detected npm project at %s", checkPath)
	m, err := manifest.Load(pkgFile)
	if err != nil {
		return err
	}
	requests := cfg.FilterRequests(m.Requests())
	logger.Debugf("Checking %d of %d dependencies", len(requests), len(m.Dependencies))

	registry, err := analyzer.NewNpmRegistry(analyzer.RegistryOptions{
		URL:       cfg.Registry,
		Timeout:   cfg.Timeout,
		UserAgent: "depfresh/" + Version,
	})
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	progress := output.NewProgress(stderr, isTerminal(os.Stderr) && !logger.IsVerbose())
	pool, err := analyzer.NewPool(registry, analyzer.PoolOptions{
		Concurrency: cfg.Concurrency,
		Retries:     cfg.Retries,
		RateLimit:   cfg.RateLimit,
		Observer:    progress.Observe,
	})
	if err != nil {
		return err
	}

	report, err := pool.Check(cmd.Context(), requests)
	progress.Finish()
	if err != nil {
		return fmt.Errorf("check interrupted after %d of %d dependencies: %w", progress.Done(), len(requests), err)
	}

	if err := writeReport(cmd, cfg, report, pkgFile, started); err != nil {
		return err
	}

	if updateDeps {
		if err := updateOutdated(cmd, report, pkgFile); err != nil {
			return err
		}
	}

	if failOnOutdated && len(report.Outdated) > 0 {
		return fmt.Errorf("%d outdated dependencies", len(report.Outdated))
	}
	return nil
}

// loadCheckConfig reads the config file and lets explicitly set flags override it.
func loadCheckConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.FindAndLoadConfig(checkPath)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = format
	}
	if flags.Changed("output") {
		cfg.Output.File = outputFile
	}
	if flags.Changed("registry") {
		cfg.Registry = registryURL
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("retries") {
		cfg.Retries = retries
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

func writeReport(cmd *cobra.Command, cfg *config.Config, report analyzer.Report, pkgFile string, started time.Time) error {
	var out []byte
	var err error
	switch cfg.Output.Format {
	case "json":
		out, err = output.GenerateJSONReport(report)
		out = append(out, '\n')
	case "sarif":
		out, err = output.GenerateSarifReport(report, output.SarifOptions{
			ManifestPath: filepath.ToSlash(pkgFile),
			ToolVersion:  Version,
			StartedAt:    started,
			Level:        cfg.GetSeverityForUpdate,
		})
		out = append(out, '\n')
	default:
		var buf bytes.Buffer
		color := cfg.Output.File == "" && isTerminal(os.Stdout)
		err = output.PrintTextReport(&buf, report, output.TextOptions{Color: color})
		out = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("failed to render %s report: %w", cfg.Output.Format, err)
	}

	if cfg.Output.File != "" {
		if err := os.WriteFile(cfg.Output.File, out, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Infof("Report written to %s", cfg.Output.File)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func updateOutdated(cmd *cobra.Command, report analyzer.Report, pkgFile string) error {
	stderr := cmd.ErrOrStderr()
	if len(report.Outdated) == 0 {
		fmt.Fprintln(stderr, "Everything is up to date")
		return nil
	}

	selected := report.Outdated
	if !assumeYes {
		if !isTerminal(os.Stdin) {
			return errors.New("--update needs an interactive terminal, use --yes to update everything")
		}
		idx, err := prompt.Select(selectPrompt, report.OutdatedLabels(), cmd.InOrStdin(), stderr)
		if errors.Is(err, prompt.ErrAborted) {
			fmt.Fprintln(stderr, "Update cancelled")
			return nil
		}
		if err != nil {
			return err
		}
		selected = pick(report.Outdated, idx)
	}
	if len(selected) == 0 {
		fmt.Fprintln(stderr, "You did not select anything :(")
		return nil
	}

	updates, err := manifest.UpdatesFromEntries(selected)
	if err != nil {
		return err
	}
	if err := manifest.WriteUpdates(pkgFile, updates); err != nil {
		return err
	}
	printUpdated(stderr, updates, pkgFile)
	return nil
}

func pick(entries []analyzer.Entry, idx []int) []analyzer.Entry {
	out := make([]analyzer.Entry, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(entries) {
			out = append(out, entries[i])
		}
	}
	return out
}

func printUpdated(w io.Writer, updates []manifest.Update, pkgFile string) {
	for _, u := range updates {
		fmt.Fprintf(w, "  %s -> %s\n", u.Name, u.Constraint)
	}
	fmt.Fprintf(w, "Updated %d %s in %s\n", len(updates), pluralDeps(len(updates)), pkgFile)
}

func pluralDeps(n int) string {
	if n == 1 {
		return "dependency"
	}
	return "dependencies"
}
