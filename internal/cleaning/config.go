package cleaning

import (
	"strings"
)

// Imputation selects how absent numeric cells are filled.
type Imputation int

const (
	ImputeNone Imputation = iota
	ImputeMean
	ImputeMedian
	ImputeKNN
)

func (m Imputation) String() string {
	switch m {
	case ImputeMean:
		return "mean"
	case ImputeMedian:
		return "median"
	case ImputeKNN:
		return "knn"
	default:
		return "none"
	}
}

// OutlierMethod selects how extreme numeric values are handled.
type OutlierMethod int

const (
	OutliersNone OutlierMethod = iota
	OutliersMAD
	OutliersZScore
	OutliersWinsorize
)

func (m OutlierMethod) String() string {
	switch m {
	case OutliersMAD:
		return "mad"
	case OutliersZScore:
		return "zscore"
	case OutliersWinsorize:
		return "winsorize"
	default:
		return "none"
	}
}

// Config is a validated cleaning configuration.
type Config struct {
	Imputation       Imputation
	Outliers         OutlierMethod
	RemoveDuplicates bool
}

// IsNoop reports whether the configuration changes nothing beyond
// normalization and coercion.
func (c Config) IsNoop() bool {
	return c.Imputation == ImputeNone && c.Outliers == OutliersNone && !c.RemoveDuplicates
}

// ParseImputation maps a method name to its variant. Unknown names map to
// ImputeNone with ok=false.
func ParseImputation(s string) (Imputation, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return ImputeNone, true
	case "mean":
		return ImputeMean, true
	case "median":
		return ImputeMedian, true
	case "knn":
		return ImputeKNN, true
	}
	return ImputeNone, false
}

// ParseOutlier maps a method name to its variant. "iqr" is accepted as the
// legacy name of the MAD method. Unknown names map to OutliersNone with ok=false.
func ParseOutlier(s string) (OutlierMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return OutliersNone, true
	case "mad", "iqr":
		return OutliersMAD, true
	case "zscore", "z-score":
		return OutliersZScore, true
	case "winsorize", "winsorization":
		return OutliersWinsorize, true
	}
	return OutliersNone, false
}

// Request is the wire form of a cleaning configuration.
type Request struct {
	Imputation       string `json:"imputationMethod" yaml:"imputation"`
	Outliers         string `json:"outlierMethod" yaml:"outliers"`
	RemoveDuplicates bool   `json:"removeDuplicates" yaml:"remove_duplicates"`
}

// Config resolves the request. unknown lists the fields whose values were
// not recognized and fell back to none.
func (r Request) Config() (cfg Config, unknown []string) {
	var ok bool
	if cfg.Imputation, ok = ParseImputation(r.Imputation); !ok {
		unknown = append(unknown, "imputation="+r.Imputation)
	}
	if cfg.Outliers, ok = ParseOutlier(r.Outliers); !ok {
		unknown = append(unknown, "outliers="+r.Outliers)
	}
	cfg.RemoveDuplicates = r.RemoveDuplicates
	return cfg, unknown
}
