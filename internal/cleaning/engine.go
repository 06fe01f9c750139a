package cleaning

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyset-cli/internal/actionlog"
	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// DefaultNeighbors is the neighbour count used by KNN imputation.
const DefaultNeighbors = 5

// ErrNilDataset is returned when Run is called without a dataset.
var ErrNilDataset = errors.New("cleaning: nil dataset")

// Summary is the diff between the dataset at call entry and the result.
type Summary struct {
	RowsRemoved     int `json:"rows_removed"`
	MissingFixed    int `json:"missing_fixed"`
	DuplicatesFixed int `json:"duplicates_fixed"`
}

// Result is the outcome of one cleaning run.
type Result struct {
	Data    *table.Dataset
	Summary Summary
	After   analysis.Snapshot
}

// Engine applies a cleaning configuration to datasets. It holds only
// parameters, so one Engine can serve many sessions.
type Engine struct {
	tokens    analysis.TokenSet
	threshold float64
	parse     analysis.NumberParser
	detector  analysis.MADDetector
	neighbors int
	logger    *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMissingTokens replaces the missing-value sentinel set.
func WithMissingTokens(tokens ...string) Option {
	return func(e *Engine) { e.tokens = analysis.NewTokenSet(tokens...) }
}

// WithNumericThreshold sets the fraction of parseable values needed to
// coerce a text column.
func WithNumericThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.threshold = t
		}
	}
}

// WithNumberParser replaces the cell number parser.
func WithNumberParser(p analysis.NumberParser) Option {
	return func(e *Engine) {
		if p != nil {
			e.parse = p
		}
	}
}

// WithMADMultiplier sets the MAD bound multiplier.
func WithMADMultiplier(k float64) Option {
	return func(e *Engine) { e.detector = analysis.NewMADDetector(k) }
}

// WithNeighbors sets the KNN neighbour count.
func WithNeighbors(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.neighbors = k
		}
	}
}

// NewEngine returns an engine with default parameters. A nil logger
// disables logging.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		tokens:    analysis.NewTokenSet(analysis.DefaultMissingTokens...),
		threshold: analysis.DefaultNumericThreshold,
		parse:     analysis.ParseNumber,
		detector:  analysis.NewMADDetector(analysis.DefaultMADMultiplier),
		neighbors: DefaultNeighbors,
		logger:    logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Detector returns the MAD detector the engine clips with.
func (e *Engine) Detector() analysis.MADDetector { return e.detector }

// Prepare normalizes missing tokens and coerces numeric columns in place.
func (e *Engine) Prepare(ds *table.Dataset) {
	n := analysis.NormalizeMissing(ds, e.tokens)
	converted := analysis.CoerceNumeric(ds, e.threshold, e.parse)
	e.logger.Debug("prepared dataset",
		zap.Int("normalized_cells", n),
		zap.Strings("numeric_columns", converted))
}

// Run cleans a copy of ds according to cfg and appends one entry to log
// for every step that executed. ds is not modified.
func (e *Engine) Run(ds *table.Dataset, cfg Config, log *actionlog.Log) (*Result, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	if log == nil {
		log = actionlog.New(nil)
	}
	out := ds.Clone()
	e.Prepare(out)

	initialRows := out.Rows()
	initialMissing := out.MissingTotal()
	initialDups := out.DuplicateCount()

	numeric := out.NumericColumns()
	whole := make(map[*table.Column]bool, len(numeric))
	for _, c := range numeric {
		whole[c] = c.Integer || isWhole(c.Present())
	}

	switch cfg.Imputation {
	case ImputeMean:
		imputeWith(numeric, mean)
		log.Append("Applied mean imputation.")
	case ImputeMedian:
		imputeWith(numeric, analysis.Median)
		log.Append("Applied median imputation.")
	case ImputeKNN:
		if n := imputeKNN(numeric, e.neighbors); n > 0 {
			log.Append("Applied KNN imputation.")
			e.logger.Debug("knn imputation", zap.Int("cells", n), zap.Int("neighbors", e.neighbors))
		}
	}

	switch cfg.Outliers {
	case OutliersMAD:
		n := clipMAD(numeric, e.detector)
		log.Append("Capped outliers using the robust MAD method.")
		e.logger.Debug("mad capping", zap.Int("cells", n))
	case OutliersZScore:
		n := clipZScore(numeric, zScoreLimit)
		log.Append("Capped outliers using the Z-Score method.")
		e.logger.Debug("zscore capping", zap.Int("cells", n))
	case OutliersWinsorize:
		n := winsorize(numeric, winsorLimit)
		log.Append("Applied Winsorization to outliers.")
		e.logger.Debug("winsorization", zap.Int("cells", n))
	}

	if cfg.Imputation != ImputeNone || cfg.Outliers != OutliersNone {
		for _, c := range numeric {
			roundColumn(c, whole[c])
		}
		log.Append("Rounded numerical columns.")
	}

	if cfg.RemoveDuplicates && initialDups > 0 {
		out.DropDuplicates()
		log.Append(fmt.Sprintf("Removed %d duplicate rows.", initialDups))
	}

	after := analysis.Analyze(out)
	res := &Result{
		Data:  out,
		After: after,
		Summary: Summary{
			RowsRemoved:     initialRows - after.Rows,
			MissingFixed:    initialMissing - after.Missing,
			DuplicatesFixed: initialDups,
		},
	}
	e.logger.Info("cleaning finished",
		zap.String("imputation", cfg.Imputation.String()),
		zap.String("outliers", cfg.Outliers.String()),
		zap.Bool("remove_duplicates", cfg.RemoveDuplicates),
		zap.Int("rows_removed", res.Summary.RowsRemoved),
		zap.Int("missing_fixed", res.Summary.MissingFixed),
		zap.Float64("health_score", after.HealthScore))
	return res, nil
}

// roundColumn rounds to integers when the column held only whole numbers
// before cleaning, otherwise to one decimal. Halves round to even. The
// column is flagged Integer only when every value fits in an int64.
func roundColumn(c *table.Column, whole bool) {
	if len(c.Present()) == 0 {
		return
	}
	for i, v := range c.Floats {
		if math.IsNaN(v) {
			continue
		}
		if whole {
			c.Floats[i] = math.RoundToEven(v)
		} else {
			c.Floats[i] = math.RoundToEven(v*10) / 10
		}
	}
	c.Integer = whole && fitsInt64(c.Present())
}

func fitsInt64(vals []float64) bool {
	for _, v := range vals {
		if math.Abs(v) >= 1<<63 {
			return false
		}
	}
	return true
}

func isWhole(vals []float64) bool {
	if len(vals) == 0 {
		return false
	}
	for _, v := range vals {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}
