package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Load reads a delimited file. Rows with more fields than the header and
// rows with quoting errors are skipped; short rows are padded with absent
// cells.
func (csvLoader) Load(filename string, data []byte, opt Options) (*Result, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(filename)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, &LoadError{Path: filename, Reason: "empty file", Err: ErrNoHeader}
	}
	if err != nil {
		return nil, &LoadError{Path: filename, Reason: "read header", Err: err}
	}
	res := &Result{}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				res.Skipped++
				continue
			}
			return nil, &LoadError{Path: filename, Reason: "read rows", Err: err}
		}
		if len(rec) > len(header) {
			res.Skipped++
			continue
		}
		rows = append(rows, rec)
	}
	res.Data = table.FromRecords(header, rows)
	return res, nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
