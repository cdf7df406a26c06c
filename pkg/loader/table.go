package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	apperrors "github.com/arnavshah/team-builder-go/pkg/errors"
	"github.com/arnavshah/team-builder-go/pkg/models"
)

// Table is a parsed CSV file; every row maps the header columns to their values
type Table struct {
	Header []string
	Rows   []models.Attributes
}

// ReadTable reads a CSV document with a header line. Empty cells are left
// out of the row so that a missing value and an empty one look the same.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewValidationError("header", "file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Header: header}
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, apperrors.NewRowValidationError("record", row, err.Error())
		}
		if blank(record) {
			continue
		}
		if len(record) > len(header) {
			return nil, apperrors.NewRowValidationError("record", row, fmt.Sprintf("%d values for %d columns", len(record), len(header)))
		}
		attrs := make(models.Attributes, len(record))
		for i, v := range record {
			attrs.Set(header[i], strings.TrimSpace(v))
		}
		t.Rows = append(t.Rows, attrs)
	}
	return t, nil
}

// ReadTableFile opens and reads a CSV file
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Has tells whether the header contains the column
func (t *Table) Has(column string) bool {
	for _, h := range t.Header {
		if h == column {
			return true
		}
	}
	return false
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// TableFromRows builds a table from column maps. The header lists first
// (when present) and then every other column in sorted order.
func TableFromRows(rows []map[string]string, first string) *Table {
	seen := make(map[string]bool)
	var rest []string
	t := &Table{}
	for _, row := range rows {
		attrs := make(models.Attributes, len(row))
		for k, v := range row {
			if k = strings.TrimSpace(k); k == "" {
				continue
			}
			attrs.Set(k, strings.TrimSpace(v))
			if !seen[k] && k != first {
				seen[k] = true
				rest = append(rest, k)
			}
		}
		t.Rows = append(t.Rows, attrs)
	}
	sort.Strings(rest)
	if first != "" {
		t.Header = append(t.Header, first)
	}
	t.Header = append(t.Header, rest...)
	return t
}
