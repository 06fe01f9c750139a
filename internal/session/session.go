package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tidyset-cli/internal/actionlog"
	"github.com/KaramelBytes/tidyset-cli/internal/analysis"
	"github.com/KaramelBytes/tidyset-cli/internal/cleaning"
	"github.com/KaramelBytes/tidyset-cli/internal/loader"
	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

// ErrNoData indicates an operation that needs a loaded dataset.
var ErrNoData = errors.New("no data loaded")

// Session holds one uploaded dataset and its cleaning lineage. It is not
// safe for concurrent use; Store serializes access.
type Session struct {
	ID       string
	FileName string
	Created  time.Time

	// Original is the normalized, coerced dataset as loaded. It is never
	// modified after Load.
	Original *table.Dataset
	// Cleaned is the result of the latest Clean, or a copy of Original.
	Cleaned *table.Dataset

	Before      analysis.Snapshot
	After       *analysis.Snapshot
	MissingInfo map[string]analysis.ColumnCount
	OutlierInfo map[string]analysis.ColumnCount
	Log         *actionlog.Log

	engine *cleaning.Engine
}

// CleanResult is the outcome of Session.Clean.
type CleanResult struct {
	Summary cleaning.Summary
	Before  analysis.Snapshot
	After   analysis.Snapshot
	// Previous is the cleaned dataset as it was before this run.
	Previous *table.Dataset
}

// Load starts a session from a raw dataset. raw is copied, then normalized
// and coerced; the baseline snapshot and per-column info are captured.
func Load(name string, raw *table.Dataset, eng *cleaning.Engine) (*Session, error) {
	if raw == nil {
		return nil, ErrNoData
	}
	if eng == nil {
		eng = cleaning.NewEngine(nil)
	}
	ds := raw.Clone()
	eng.Prepare(ds)

	s := &Session{
		ID:          uuid.NewString(),
		FileName:    filepath.Base(name),
		Created:     time.Now(),
		Original:    ds,
		Cleaned:     ds.Clone(),
		Before:      analysis.Analyze(ds),
		MissingInfo: analysis.MissingInfo(ds),
		OutlierInfo: analysis.OutlierInfo(ds, eng.Detector()),
		Log:         actionlog.New(nil),
		engine:      eng,
	}
	s.Log.Append(fmt.Sprintf("Data loaded: %d rows, %d columns", ds.Rows(), len(ds.Columns)))
	return s, nil
}

// LoadFile reads path with the registered loaders and starts a session.
func LoadFile(path string, opt loader.Options, eng *cleaning.Engine) (*Session, error) {
	res, err := loader.LoadFile(path, opt)
	if err != nil {
		return nil, err
	}
	return Load(path, res.Data, eng)
}

// LoadBytes parses an uploaded file and starts a session.
func LoadBytes(name string, data []byte, opt loader.Options, eng *cleaning.Engine) (*Session, error) {
	res, err := loader.Load(name, data, opt)
	if err != nil {
		return nil, err
	}
	return Load(name, res.Data, eng)
}

// Clean runs the engine over the current cleaned dataset and replaces it
// with the result. Repeated calls build on each other.
func (s *Session) Clean(cfg cleaning.Config) (*CleanResult, error) {
	if s == nil || s.Original == nil || s.Cleaned == nil {
		return nil, ErrNoData
	}
	eng := s.engine
	if eng == nil {
		eng = cleaning.NewEngine(nil)
	}
	prev := s.Cleaned
	res, err := eng.Run(prev, cfg, s.Log)
	if err != nil {
		return nil, fmt.Errorf("clean %s: %w", s.FileName, err)
	}
	s.Cleaned = res.Data
	after := res.After
	s.After = &after
	return &CleanResult{
		Summary:  res.Summary,
		Before:   s.Before,
		After:    after,
		Previous: prev,
	}, nil
}

// Current returns the dataset reports and exports should use: the cleaned
// one once Clean has run, otherwise the original.
func (s *Session) Current() *table.Dataset {
	if s.After != nil {
		return s.Cleaned
	}
	return s.Original
}

// Detector returns the MAD detector configured for this session.
func (s *Session) Detector() analysis.MADDetector {
	if s.engine == nil {
		return analysis.NewMADDetector(0)
	}
	return s.engine.Detector()
}
