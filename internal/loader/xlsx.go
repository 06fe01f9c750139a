package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tidyset-cli/internal/table"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads the selected sheet of an .xlsx workbook. The first row is the
// header. If no sheet is selected it defaults to the first one.
func (xlsxLoader) Load(filename string, data []byte, opt Options) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &LoadError{Path: filename, Reason: "open workbook", Err: err}
	}
	var wb workbookPart
	if err := readPart(zr, "xl/workbook.xml", &wb); err != nil {
		return nil, &LoadError{Path: filename, Reason: "read workbook", Err: err}
	}
	var rels relsPart
	if err := readPart(zr, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, &LoadError{Path: filename, Reason: "read relationships", Err: err}
	}

	sheet, target, err := resolveSheet(wb.Sheets, rels.targets(), opt)
	if err != nil {
		return nil, &LoadError{Path: filename, Reason: "select sheet", Err: err}
	}
	sheetXML, err := fs.ReadFile(zr, target)
	if err != nil {
		return nil, &LoadError{Path: filename, Reason: "missing worksheet " + target, Err: ErrNoHeader}
	}
	var sst sharedStringsPart
	if err := readPart(zr, "xl/sharedStrings.xml", &sst); err != nil {
		return nil, &LoadError{Path: filename, Reason: "read shared strings", Err: err}
	}

	records, err := sheetRecords(sheetXML, sst.values())
	if err != nil {
		return nil, &LoadError{Path: filename, Reason: "read worksheet " + target, Err: err}
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, &LoadError{Path: filename, Reason: "empty sheet", Err: ErrNoHeader}
	}
	return &Result{Data: table.FromRecords(records[0], records[1:]), Sheet: sheet}, nil
}

func resolveSheet(sheets []sheetEntry, rels map[string]string, opt Options) (name, target string, err error) {
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s.Name, opt.SheetName) {
				if rel, ok := rels[s.RID]; ok {
					return s.Name, normalizeRelPath(rel), nil
				}
			}
		}
		available := make([]string, len(sheets))
		for i, s := range sheets {
			available[i] = s.Name
		}
		return "", "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, opt.SheetName, strings.Join(available, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		if len(sheets) > 0 {
			if rel, ok := rels[sheets[0].RID]; ok {
				return sheets[0].Name, normalizeRelPath(rel), nil
			}
		}
		idx = 1
	}
	for _, s := range sheets {
		if s.SheetID == idx {
			if rel, ok := rels[s.RID]; ok {
				return s.Name, normalizeRelPath(rel), nil
			}
		}
	}
	return "", path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx)), nil
}

type workbookPart struct {
	Sheets []sheetEntry `xml:"sheets>sheet"`
}

type sheetEntry struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"`
}

type relsPart struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func (p relsPart) targets() map[string]string {
	out := make(map[string]string, len(p.Relationships))
	for _, r := range p.Relationships {
		if r.ID != "" && r.Target != "" {
			out[r.ID] = r.Target
		}
	}
	return out
}

// richText is a shared or inline string: plain <t> or a list of <r> runs.
type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (r richText) String() string {
	if len(r.Runs) == 0 {
		return r.T
	}
	var b strings.Builder
	b.WriteString(r.T)
	for _, run := range r.Runs {
		b.WriteString(run.T)
	}
	return b.String()
}

type sharedStringsPart struct {
	Items []richText `xml:"si"`
}

func (p sharedStringsPart) values() []string {
	out := make([]string, len(p.Items))
	for i, it := range p.Items {
		out[i] = it.String()
	}
	return out
}

type sheetRow struct {
	Cells []sheetCell `xml:"c"`
}

type sheetCell struct {
	Ref    string    `xml:"r,attr"`
	Type   string    `xml:"t,attr"`
	Value  string    `xml:"v"`
	Inline *richText `xml:"is"`
}

// text resolves the display value of a cell.
func (c sheetCell) text(shared []string) string {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "b":
		if c.Value == "1" {
			return "TRUE"
		}
		return "FALSE"
	case "inlineStr":
		if c.Inline != nil {
			return c.Inline.String()
		}
	}
	return c.Value
}

// readPart unmarshals an optional workbook part; a missing part leaves v empty.
func readPart(zr *zip.Reader, name string, v any) error {
	data, err := fs.ReadFile(zr, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

// sheetRecords decodes worksheet rows one <row> element at a time. Cells are
// placed by their reference so gaps become empty strings.
func sheetRecords(data []byte, shared []string) ([][]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var records [][]string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row sheetRow
		if err := dec.DecodeElement(&row, &se); err != nil {
			return records, err
		}
		var rec []string
		for _, c := range row.Cells {
			col := colIndexFromRef(c.Ref)
			if col < 0 {
				col = len(rec)
			}
			for len(rec) <= col {
				rec = append(rec, "")
			}
			rec[col] = c.text(shared)
		}
		records = append(records, rec)
	}
}

// colIndexFromRef maps refs like "C12" to 2. It returns -1 for an empty ref.
func colIndexFromRef(ref string) int {
	idx := 0
	for _, ch := range strings.ToUpper(ref) {
		if ch < 'A' || ch > 'Z' {
			break
		}
		idx = idx*26 + int(ch-'A'+1)
	}
	return idx - 1
}

// normalizeRelPath converts relationship targets to ZIP entry names.
// Targets may carry a leading slash; ZIP entries never do.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
