package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyset-cli/internal/cleaning"
	"github.com/KaramelBytes/tidyset-cli/internal/preview"
	"github.com/KaramelBytes/tidyset-cli/internal/session"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

var (
	pvRows     int
	pvWidth    int
	pvCleaned  bool
	pvSource   sourceFlags
	pvImpute   string
	pvOutliers string
)

const outlierMark = "*"

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Print the first rows of a file with outlier cells marked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := pvSource.loaderOptions()
		if err != nil {
			return err
		}
		eng, err := pvSource.newEngine()
		if err != nil {
			return err
		}
		sess, err := session.LoadFile(args[0], opt, eng)
		if err != nil {
			return err
		}
		ds := sess.Original
		if pvCleaned {
			c := settings()
			req := cleaning.Request{Imputation: c.DefaultImputation, Outliers: c.DefaultOutliers, RemoveDuplicates: c.RemoveDuplicates}
			if cmd.Flags().Changed("impute") {
				req.Imputation = pvImpute
			}
			if cmd.Flags().Changed("outliers") {
				req.Outliers = pvOutliers
			}
			ccfg, _ := req.Config()
			if _, err := sess.Clean(ccfg); err != nil {
				return err
			}
			ds = sess.Cleaned
		}
		if pvRows <= 0 {
			pvRows = 20
		}
		marks := preview.OutlierCoordinates(ds, sess.Detector(), pvRows)
		renderTable(cmd.OutOrStdout(), ds.Head(pvRows), marks, pvWidth)
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d rows; %s marks MAD outliers\n", min(pvRows, ds.Rows()), ds.Rows(), outlierMark)
		return nil
	},
}

// renderTable writes ds as an aligned text table. Cells wider than width
// display columns are truncated.
func renderTable(w io.Writer, ds *table.Dataset, marks []preview.Coordinate, width int) {
	if width < 4 {
		width = 4
	}
	flagged := make(map[preview.Coordinate]bool, len(marks))
	for _, m := range marks {
		flagged[m] = true
	}

	header := append([]string{"#"}, ds.Names()...)
	rows := make([][]string, ds.Rows())
	for i := range rows {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(ds.Index[i]))
		for _, c := range ds.Columns {
			cell := c.Format(i)
			if c.IsNull(i) {
				cell = "-"
			}
			cell = runewidth.Truncate(cell, width, "…")
			if flagged[preview.Coordinate{Row: ds.Index[i], Column: c.Name}] {
				cell += outlierMark
			}
			row = append(row, cell)
		}
		rows[i] = row
	}

	widths := make([]int, len(header))
	for j, h := range header {
		header[j] = runewidth.Truncate(h, width, "…")
		widths[j] = runewidth.StringWidth(header[j])
	}
	for _, row := range rows {
		for j, cell := range row {
			if sw := runewidth.StringWidth(cell); sw > widths[j] {
				widths[j] = sw
			}
		}
	}

	writeRow := func(cells []string) {
		for j, cell := range cells {
			if j > 0 {
				fmt.Fprint(w, "  ") //nolint:errcheck
			}
			fmt.Fprint(w, runewidth.FillRight(cell, widths[j])) //nolint:errcheck
		}
		fmt.Fprintln(w) //nolint:errcheck
	}
	writeRow(header)
	sep := make([]string, len(header))
	for j := range sep {
		sep[j] = strings.Repeat("-", widths[j])
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().IntVarP(&pvRows, "rows", "n", 20, "number of rows to show")
	previewCmd.Flags().IntVar(&pvWidth, "width", 18, "maximum display width per cell")
	previewCmd.Flags().BoolVar(&pvCleaned, "cleaned", false, "preview the cleaned data instead of the original")
	previewCmd.Flags().StringVar(&pvImpute, "impute", "none", "with --cleaned: imputation method")
	previewCmd.Flags().StringVar(&pvOutliers, "outliers", "none", "with --cleaned: outlier method")
	pvSource.register(previewCmd)
}
