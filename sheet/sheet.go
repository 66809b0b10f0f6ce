// Package sheet reads translated spreadsheets returned by translators.
//
// The first worksheet holds a header row with a "Key" column and one column
// per language code; every following row is one key.
package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// KeyColumn is the header of the key column.
const KeyColumn = "Key"

var (
	// ErrNoImportFile means the import directory holds no workbook.
	ErrNoImportFile = errors.New("no .xlsx import file found")
	// ErrAmbiguousImportFile means the import directory holds several workbooks.
	ErrAmbiguousImportFile = errors.New("more than one .xlsx import file found")
)

// Row is one imported key with its per-language cells.
type Row struct {
	Key    string
	Values map[string]string
}

// Value returns the cell of lang.
func (r Row) Value(lang string) (string, bool) {
	v, ok := r.Values[lang]
	return v, ok && v != ""
}

// FindImportFile returns the single .xlsx file in dir. Office lock files
// ("~$name.xlsx") are ignored.
func FindImportFile(fsys afero.Fs, dir string) (string, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("reading import directory %s: %w", dir, err)
	}

	var found []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		found = append(found, filepath.Join(dir, name))
	}
	sort.Strings(found)

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%s: %w", dir, ErrNoImportFile)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%s: %w: %s", dir, ErrAmbiguousImportFile, strings.Join(found, ", "))
	}
}

// ReadRows reads the first worksheet of the workbook at path on fsys.
func ReadRows(fsys afero.Fs, path string) ([]Row, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no worksheets", path)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: worksheet %q is empty", path, sheets[0])
	}

	rows, err := RowsFromRecords(records[0], records[1:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// RowsFromRecords converts a header and its records into rows. Rows with a
// blank key are skipped; short records leave the missing cells empty.
func RowsFromRecords(header []string, records [][]string) ([]Row, error) {
	keyCol := -1
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
		if columns[i] == KeyColumn {
			keyCol = i
		}
	}
	if keyCol < 0 {
		return nil, fmt.Errorf("missing %q column", KeyColumn)
	}

	var rows []Row
	for _, rec := range records {
		if keyCol >= len(rec) || strings.TrimSpace(rec[keyCol]) == "" {
			continue
		}
		row := Row{Key: strings.TrimSpace(rec[keyCol]), Values: make(map[string]string)}
		for i, col := range columns {
			if i == keyCol || col == "" {
				continue
			}
			if i < len(rec) {
				row.Values[col] = rec[i]
			} else {
				row.Values[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
