package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tidyset-cli/internal/cleaning"
	"github.com/KaramelBytes/tidyset-cli/internal/report"
	"github.com/KaramelBytes/tidyset-cli/internal/session"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
	"github.com/KaramelBytes/tidyset-cli/internal/utils"
)

var (
	clImpute     string
	clOutliers   string
	clDedup      bool
	clPreset     string
	clOutPath    string
	clReportPath string
	clSaveReport bool
	clQuiet      bool
	clSource     sourceFlags
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Clean a CSV/TSV/XLSX file and write the result as CSV",
	Long: `Clean applies, in order: missing-value imputation (none|mean|median|knn),
outlier capping (none|mad|zscore|winsorize), rounding and duplicate removal.
Defaults come from the config file, then --preset, then explicit flags.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		req, err := resolveCleanRequest(cmd)
		if err != nil {
			return err
		}
		ccfg, unknown := req.Config()
		for _, u := range unknown {
			fmt.Fprintf(os.Stderr, "⚠ Warning: unrecognized option %s, using none\n", u)
		}

		opt, err := clSource.loaderOptions()
		if err != nil {
			return err
		}
		eng, err := clSource.newEngine()
		if err != nil {
			return err
		}
		sess, err := session.LoadFile(path, opt, eng)
		if err != nil {
			return err
		}
		res, err := sess.Clean(ccfg)
		if err != nil {
			return err
		}

		if err := writeCleaned(sess.Cleaned, cleanedPath(path)); err != nil {
			return err
		}
		if clReportPath != "" || clSaveReport {
			if err := writeReports(sess); err != nil {
				return err
			}
		}
		if !clQuiet {
			printCleanSummary(cmd.ErrOrStderr(), sess, res)
		}
		return nil
	},
}

// resolveCleanRequest layers config defaults, the preset file and explicit
// flags, in that order.
func resolveCleanRequest(cmd *cobra.Command) (cleaning.Request, error) {
	c := settings()
	req := cleaning.Request{
		Imputation:       c.DefaultImputation,
		Outliers:         c.DefaultOutliers,
		RemoveDuplicates: c.RemoveDuplicates,
	}
	if clPreset != "" {
		b, err := os.ReadFile(clPreset)
		if err != nil {
			return req, fmt.Errorf("read preset: %w", err)
		}
		if err := yaml.Unmarshal(b, &req); err != nil {
			return req, fmt.Errorf("parse preset %s: %w", filepath.Base(clPreset), err)
		}
	}
	f := cmd.Flags()
	if f.Changed("impute") {
		req.Imputation = clImpute
	}
	if f.Changed("outliers") {
		req.Outliers = clOutliers
	}
	if f.Changed("dedup") {
		req.RemoveDuplicates = clDedup
	}
	return req, nil
}

func cleanedPath(src string) string {
	if clOutPath != "" {
		return clOutPath
	}
	return filepath.Join(filepath.Dir(src), utils.Stem(src)+"_cleaned.csv")
}

// writeCleaned writes ds as CSV to path, or to stdout when path is "-".
func writeCleaned(ds *table.Dataset, path string) error {
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, ds); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if path == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write cleaned data: %w", err)
	}
	if !clQuiet {
		fmt.Printf("✓ Wrote cleaned data to %s\n", path)
	}
	return nil
}

func buildReport(sess *session.Session) *report.Model {
	after := sess.Before
	if sess.After != nil {
		after = *sess.After
	}
	m := report.Build(sess.Before, after, sess.Log.Entries(), sess.Current())
	m.FileName = sess.FileName
	return m.WithMissing(sess.MissingInfo)
}

func writeReports(sess *session.Session) error {
	m := buildReport(sess)
	var targets []string
	if clReportPath != "" {
		targets = append(targets, clReportPath)
	}
	if clSaveReport {
		name := fmt.Sprintf("%s-%s.html", utils.Stem(sess.FileName), time.Now().Format("20060102-150405"))
		targets = append(targets, filepath.Join(settings().ReportsDir, name))
	}
	for _, p := range targets {
		var buf bytes.Buffer
		var err error
		switch strings.ToLower(filepath.Ext(p)) {
		case ".html", ".htm":
			err = report.RenderHTML(&buf, m)
		default:
			err = report.WriteMarkdown(&buf, m)
		}
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		if err := utils.SafeWriteFile(p, buf.Bytes()); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if !clQuiet {
			fmt.Printf("✓ Wrote report to %s\n", p)
		}
	}
	return nil
}

func printCleanSummary(w io.Writer, sess *session.Session, res *session.CleanResult) {
	fmt.Fprintf(w, "Rows: %d -> %d (removed %d)\n", res.Before.Rows, res.After.Rows, res.Summary.RowsRemoved)
	fmt.Fprintf(w, "Missing values fixed: %d\n", res.Summary.MissingFixed)
	fmt.Fprintf(w, "Duplicates removed: %d\n", res.Summary.DuplicatesFixed)
	fmt.Fprintf(w, "Health score: %.2f%% -> %.2f%%\n", res.Before.HealthScore, res.After.HealthScore)
	if debug {
		for _, e := range sess.Log.Entries() {
			fmt.Fprintf(w, "  %s %s\n", e.Time.Format("15:04:05"), e.Action)
		}
	}
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVar(&clImpute, "impute", "none", "imputation method: none|mean|median|knn")
	cleanCmd.Flags().StringVar(&clOutliers, "outliers", "none", "outlier method: none|mad|zscore|winsorize")
	cleanCmd.Flags().BoolVar(&clDedup, "dedup", false, "remove duplicate rows (keep first)")
	cleanCmd.Flags().StringVar(&clPreset, "preset", "", "YAML file with imputation/outliers/remove_duplicates")
	cleanCmd.Flags().StringVarP(&clOutPath, "out", "o", "", "cleaned CSV path ('-' for stdout; default <name>_cleaned.csv)")
	cleanCmd.Flags().StringVar(&clReportPath, "report", "", "write a report (.md or .html)")
	cleanCmd.Flags().BoolVar(&clSaveReport, "save-report", false, "also save an HTML report under reports_dir")
	cleanCmd.Flags().BoolVar(&clQuiet, "quiet", false, "suppress progress and summary output")
	clSource.register(cleanCmd)
}
