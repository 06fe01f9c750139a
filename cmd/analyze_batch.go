package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/tidyset-cli/internal/utils"
)

var (
	abOutDir     string
	abSampleRows int
	abJSON       bool
	abJobs       int
	abQuiet      bool
	abSource     sourceFlags
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		var targets []string
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return err
			}
			targets = summaryPaths(abOutDir, files, abJSON)
		}

		results := make([][]byte, len(files))
		var done atomic.Int32
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(max(abJobs, 1))
		for i, path := range files {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				out, err := analyzeFile(path, &abSource, abSampleRows, abJSON)
				if err != nil {
					return err
				}
				if targets != nil {
					if err := utils.SafeWriteFile(targets[i], out); err != nil {
						return fmt.Errorf("write summary: %w", err)
					}
				} else {
					results[i] = out
				}
				if !abQuiet {
					fmt.Fprintf(os.Stderr, "[%d/%d] Processed %s\n", done.Add(1), len(files), filepath.Base(path))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if targets != nil {
			if !abQuiet {
				fmt.Printf("✓ Wrote %d summaries to %s\n", len(targets), abOutDir)
			}
			return nil
		}
		for _, out := range results {
			fmt.Println(string(out))
		}
		return nil
	},
}

// expandInputs resolves glob patterns and literal paths into a sorted,
// de-duplicated file list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// summaryPaths assigns each input an output file in dir. Names that collide
// with an earlier input or an existing file get a __N suffix.
func summaryPaths(dir string, files []string, asJSON bool) []string {
	ext := ".summary.md"
	if asJSON {
		ext = ".summary.json"
	}
	taken := map[string]bool{}
	out := make([]string, len(files))
	for i, f := range files {
		stem := utils.Stem(f)
		cand := filepath.Join(dir, stem+ext)
		for idx := 2; taken[cand] || exists(cand); idx++ {
			cand = filepath.Join(dir, fmt.Sprintf("%s__%d%s", stem, idx, ext))
		}
		taken[cand] = true
		out[i] = cand
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "write one summary per file into this directory")
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeBatchCmd.Flags().BoolVar(&abJSON, "json", false, "emit JSON instead of Markdown")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 4, "files analyzed in parallel")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	abSource.register(analyzeBatchCmd)
}
