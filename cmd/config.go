package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tidyset-cli/internal/cleaning"
	cfgpkg "github.com/KaramelBytes/tidyset-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tidyset configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("missing_tokens: %q\n", cfg.MissingTokens)
		fmt.Printf("numeric_threshold: %.3f\n", cfg.NumericThreshold)
		fmt.Printf("outlier_multiplier: %.3f\n", cfg.OutlierMultiplier)
		fmt.Printf("knn_neighbors: %d\n", cfg.KNNNeighbors)
		fmt.Printf("preview_rows: %d\n", cfg.PreviewRows)
		fmt.Printf("scatter_points: %d\n", cfg.ScatterPoints)
		fmt.Printf("default_imputation: %s\n", cfg.DefaultImputation)
		fmt.Printf("default_outliers: %s\n", cfg.DefaultOutliers)
		fmt.Printf("remove_duplicates: %t\n", cfg.RemoveDuplicates)
		fmt.Printf("listen_addr: %s\n", cfg.ListenAddr)
		if len(cfg.AllowedOrigins) > 0 {
			fmt.Printf("allowed_origins: %s\n", strings.Join(cfg.AllowedOrigins, ","))
		}
		fmt.Printf("max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Printf("reports_dir: %s\n", cfg.ReportsDir)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := applySetting(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

// applySetting assigns one key of c from its string form.
func applySetting(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "missing_tokens":
		c.MissingTokens = splitList(val)
	case "numeric_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 || f > 1 {
			return fmt.Errorf("invalid float for numeric_threshold: %v (want 0 < t <= 1)", val)
		}
		c.NumericThreshold = f
	case "outlier_multiplier":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid float for outlier_multiplier: %v", val)
		}
		c.OutlierMultiplier = f
	case "knn_neighbors", "preview_rows", "scatter_points", "max_upload_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "knn_neighbors":
			c.KNNNeighbors = i
		case "preview_rows":
			c.PreviewRows = i
		case "scatter_points":
			c.ScatterPoints = i
		default:
			c.MaxUploadMB = i
		}
	case "default_imputation":
		m, ok := cleaning.ParseImputation(val)
		if !ok {
			return fmt.Errorf("invalid default_imputation: %s (use none, mean, median or knn)", val)
		}
		c.DefaultImputation = m.String()
	case "default_outliers":
		m, ok := cleaning.ParseOutlier(val)
		if !ok {
			return fmt.Errorf("invalid default_outliers: %s (use none, mad, zscore or winsorize)", val)
		}
		c.DefaultOutliers = m.String()
	case "remove_duplicates":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for remove_duplicates: %w", err)
		}
		c.RemoveDuplicates = b
	case "listen_addr":
		c.ListenAddr = val
	case "allowed_origins":
		c.AllowedOrigins = splitList(val)
	case "reports_dir":
		c.ReportsDir = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
