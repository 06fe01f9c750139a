package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

var (
	// ErrUnsupported indicates a file extension no loader accepts.
	ErrUnsupported = errors.New("unsupported file format")
	// ErrNoHeader indicates an empty source with no header row.
	ErrNoHeader = errors.New("no header row")
	// ErrLegacyWorkbook indicates a binary .xls workbook.
	ErrLegacyWorkbook = errors.New("legacy .xls workbooks are not supported; save as .xlsx or .csv")
	// ErrSheetNotFound indicates the requested worksheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)

// LoadError describes why a source could not be turned into a dataset.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e == nil {
		return "load failed"
	}
	msg := fmt.Sprintf("load %s: %s", filepath.Base(e.Path), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

// Options tunes how a source is read.
type Options struct {
	// Delimiter overrides the CSV separator; 0 picks one from the extension.
	Delimiter rune
	// SheetName selects a worksheet by name (case-insensitive).
	SheetName string
	// SheetIndex selects a worksheet by 1-based sheetId when SheetName is empty.
	SheetIndex int
}

// Result is a loaded dataset plus read diagnostics.
type Result struct {
	Data *table.Dataset
	// Skipped counts malformed rows that were dropped.
	Skipped int
	// Sheet is the worksheet name for workbook sources.
	Sheet string
}

// Loader reads one family of file formats.
type Loader interface {
	CanLoad(filename string) bool
	Load(filename string, data []byte, opt Options) (*Result, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(xlsLoader{})
}

// Supported reports whether some loader accepts filename.
func Supported(filename string) bool {
	return find(filename) != nil
}

// Extensions lists the accepted file extensions.
func Extensions() []string { return []string{"csv", "tsv", "xlsx", "xls"} }

func find(filename string) Loader {
	for _, l := range registry {
		if l.CanLoad(filename) {
			return l
		}
	}
	return nil
}

// LoadFile reads path from disk and loads it.
func LoadFile(path string, opt Options) (*Result, error) {
	if find(path) == nil {
		return nil, &LoadError{Path: path, Reason: "unsupported extension " + strings.ToLower(filepath.Ext(path)), Err: ErrUnsupported}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "unreadable source", Err: err}
	}
	return Load(path, data, opt)
}

// Load parses data using the loader registered for filename's extension.
func Load(filename string, data []byte, opt Options) (*Result, error) {
	l := find(filename)
	if l == nil {
		return nil, &LoadError{Path: filename, Reason: "unsupported extension " + strings.ToLower(filepath.Ext(filename)), Err: ErrUnsupported}
	}
	res, err := l.Load(filename, data, opt)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LoadError{Path: filename, Reason: "unreadable source", Err: err}
	}
	return res, nil
}

type xlsLoader struct{}

func (xlsLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xls")
}

func (xlsLoader) Load(filename string, _ []byte, _ Options) (*Result, error) {
	return nil, &LoadError{Path: filename, Reason: "unsupported workbook", Err: ErrLegacyWorkbook}
}
