package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_OutDirAndSuppressSamples(t *testing.T) {
	home := t.TempDir()

	// Two CSV files with the same basename in different directories
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeInput(t, home, filepath.Join("d1", "metrics.csv"), csv)
	writeInput(t, home, filepath.Join("d2", "metrics.csv"), csv)
	outDir := filepath.Join(home, "summaries")

	runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "--sample-rows", "0", "-j", "2", "--quiet")

	// Verify files written with collision suffix
	b1 := filepath.Join(outDir, "metrics.summary.md")
	b2 := filepath.Join(outDir, "metrics__2.summary.md")
	for _, p := range []string{b1, b2} {
		body := readFile(t, p)
		if !strings.Contains(body, "Rows: 3") {
			t.Fatalf("unexpected summary in %s:\n%s", p, body)
		}
		// Sample rows are suppressed
		if strings.Contains(body, "[HEAD AND SAMPLE ROWS]") {
			t.Fatalf("expected no sample rows in %s", p)
		}
	}

	// A rerun keeps the earlier summaries and appends new suffixes
	runCmd(t, "analyze-batch", filepath.Join(home, "d1", "metrics.csv"), "--out-dir", outDir, "--json", "--quiet")
	if _, err := os.Stat(filepath.Join(outDir, "metrics.summary.json")); err != nil {
		t.Fatalf("missing json summary: %v", err)
	}
}

func TestAnalyzeBatch_FailsOnBadFile(t *testing.T) {
	home := t.TempDir()
	writeInput(t, home, "ok.csv", "a\n1\n")
	writeInput(t, home, "bad.xls", "not a workbook")
	err := execCmd("analyze-batch", filepath.Join(home, "*"), "--quiet")
	if err == nil || !strings.Contains(err.Error(), "bad.xls") {
		t.Fatalf("expected load error naming bad.xls, got %v", err)
	}
}

func TestExpandInputs(t *testing.T) {
	if _, err := expandInputs([]string{filepath.Join(t.TempDir(), "*.csv")}); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
	dir := t.TempDir()
	a := writeInput(t, dir, "b.csv", "x\n")
	b := writeInput(t, dir, "a.csv", "x\n")
	got, err := expandInputs([]string{filepath.Join(dir, "*.csv"), a})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(got) != 2 || got[0] != b || got[1] != a {
		t.Fatalf("expected sorted unique files, got %v", got)
	}
}
