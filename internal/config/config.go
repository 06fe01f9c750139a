package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName names the config and data directories.
const AppName = "tidyset"

// Global configuration structure.
type Global struct {
	// Pipeline
	MissingTokens     []string `mapstructure:"missing_tokens" yaml:"missing_tokens"`
	NumericThreshold  float64  `mapstructure:"numeric_threshold" yaml:"numeric_threshold"`
	OutlierMultiplier float64  `mapstructure:"outlier_multiplier" yaml:"outlier_multiplier"`
	KNNNeighbors      int      `mapstructure:"knn_neighbors" yaml:"knn_neighbors"`

	// Projection limits
	PreviewRows   int `mapstructure:"preview_rows" yaml:"preview_rows"`
	ScatterPoints int `mapstructure:"scatter_points" yaml:"scatter_points"`

	// Cleaning defaults for the CLI
	DefaultImputation string `mapstructure:"default_imputation" yaml:"default_imputation"`
	DefaultOutliers   string `mapstructure:"default_outliers" yaml:"default_outliers"`
	RemoveDuplicates  bool   `mapstructure:"remove_duplicates" yaml:"remove_duplicates"`

	// HTTP server
	ListenAddr     string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxUploadMB    int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	ReportsDir string `mapstructure:"reports_dir" yaml:"reports_dir"`
}

// Dir returns the XDG config directory for tidyset.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Save writes the given configuration to cfgFile, or to DefaultPath when
// cfgFile is empty, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is read into the environment first.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TIDYSET")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("missing_tokens", d.MissingTokens)
	v.SetDefault("numeric_threshold", d.NumericThreshold)
	v.SetDefault("outlier_multiplier", d.OutlierMultiplier)
	v.SetDefault("knn_neighbors", d.KNNNeighbors)
	v.SetDefault("preview_rows", d.PreviewRows)
	v.SetDefault("scatter_points", d.ScatterPoints)
	v.SetDefault("default_imputation", d.DefaultImputation)
	v.SetDefault("default_outliers", d.DefaultOutliers)
	v.SetDefault("remove_duplicates", d.RemoveDuplicates)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("allowed_origins", d.AllowedOrigins)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	v.SetDefault("reports_dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ReportsDir == "" {
		c.ReportsDir = d.ReportsDir
	}
	return &c, nil
}

// Defaults returns the settings used when no file or environment overrides them.
func Defaults() *Global {
	return &Global{
		MissingTokens:     []string{"", "na", "n/a", "nan", "null", "none", "unknown", "error"},
		NumericThreshold:  0.6,
		OutlierMultiplier: 2.5,
		KNNNeighbors:      5,
		PreviewRows:       100,
		ScatterPoints:     500,
		DefaultImputation: "none",
		DefaultOutliers:   "none",
		ListenAddr:        "127.0.0.1:5000",
		AllowedOrigins:    []string{"http://localhost:5173"},
		MaxUploadMB:       32,
		ReportsDir:        filepath.Join(xdg.DataHome, AppName, "reports"),
	}
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c *Global) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 32 << 20
	}
	return int64(c.MaxUploadMB) << 20
}
