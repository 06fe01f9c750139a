package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/session"
	"github.com/KaramelBytes/tidyset-cli/internal/utils"
)

var (
	anaOutputPath string
	anaSampleRows int
	anaJSON       bool
	anaSource     sourceFlags
)

// analyzeOutput is the --json form of a baseline analysis.
type analyzeOutput struct {
	Stats        analysis.Snapshot               `json:"stats"`
	MissingInfo  map[string]analysis.ColumnCount `json:"missing_info"`
	OutliersInfo map[string]analysis.ColumnCount `json:"outliers_info"`
	Profile      *analysis.Report                `json:"profile"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Score a CSV/TSV/XLSX file and print a quality summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := analyzeFile(args[0], &anaSource, anaSampleRows, anaJSON)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

// analyzeFile loads path and renders its baseline as Markdown or JSON.
func analyzeFile(path string, src *sourceFlags, sampleRows int, asJSON bool) ([]byte, error) {
	opt, err := src.loaderOptions()
	if err != nil {
		return nil, err
	}
	eng, err := src.newEngine()
	if err != nil {
		return nil, err
	}
	sess, err := session.LoadFile(path, opt, eng)
	if err != nil {
		return nil, err
	}
	rep := analysis.Profile(sess.FileName, sess.Original, sess.Detector(), sampleRows)
	if !asJSON {
		return []byte(rep.Markdown()), nil
	}
	return utils.PrettyJSON(analyzeOutput{
		Stats:        sess.Before,
		MissingInfo:  sess.MissingInfo,
		OutliersInfo: sess.OutlierInfo,
		Profile:      rep,
	})
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "emit JSON instead of Markdown")
	anaSource.register(analyzeCmd)
}
