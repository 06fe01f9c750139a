package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/cleaning"
	cfgpkg "github.com/KaramelBytes/tidyset-cli/internal/config"
	"github.com/KaramelBytes/tidyset-cli/internal/loader"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// Process-wide logger, replaced once flags are parsed
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tidyset",
	Short: "tidyset CLI: profile, clean and report on tabular data",
	Long:  `tidyset loads CSV/TSV/XLSX files, scores their quality, applies imputation, outlier capping and de-duplication, and renders before/after reports. It can also serve the same pipeline over HTTP.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/tidyset/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	logger = newLogger(debug)
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// newLogger builds a console logger: debug level with --debug, warnings
// and above otherwise.
func newLogger(debug bool) *zap.Logger {
	zc := zap.NewDevelopmentConfig()
	zc.DisableStacktrace = !debug
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// settings returns the loaded configuration or the defaults when none
// could be loaded.
func settings() *cfgpkg.Global {
	if cfg != nil {
		return cfg
	}
	return cfgpkg.Defaults()
}

// sourceFlags are the load and parse options shared by the file commands.
type sourceFlags struct {
	delimiter  string
	sheetName  string
	sheetIndex int
	decimal    string
	thousands  string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default from extension)")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.registerNumbers(cmd)
}

func (f *sourceFlags) registerNumbers(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
}

func (f *sourceFlags) loaderOptions() (loader.Options, error) {
	opt := loader.Options{SheetName: f.sheetName, SheetIndex: f.sheetIndex}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	return opt, nil
}

// parser returns a locale number parser when either separator flag is set.
func (f *sourceFlags) parser() (analysis.NumberParser, error) {
	var dec, thou rune
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		dec = ','
	case ".", "dot":
		dec = '.'
	case "":
	default:
		return nil, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		thou = ','
	case ".":
		thou = '.'
	case "space", " ":
		thou = ' '
	case "":
	default:
		return nil, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	if dec == 0 && thou == 0 {
		return nil, nil
	}
	return analysis.LocaleParser(dec, thou), nil
}

// newEngine builds a cleaning engine from the configuration and flags.
func (f *sourceFlags) newEngine() (*cleaning.Engine, error) {
	c := settings()
	opts := []cleaning.Option{
		cleaning.WithNumericThreshold(c.NumericThreshold),
		cleaning.WithMADMultiplier(c.OutlierMultiplier),
		cleaning.WithNeighbors(c.KNNNeighbors),
	}
	if len(c.MissingTokens) > 0 {
		opts = append(opts, cleaning.WithMissingTokens(c.MissingTokens...))
	}
	p, err := f.parser()
	if err != nil {
		return nil, err
	}
	if p != nil {
		opts = append(opts, cleaning.WithNumberParser(p))
	}
	return cleaning.NewEngine(logger, opts...), nil
}
