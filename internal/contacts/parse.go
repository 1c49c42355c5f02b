package contacts

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"bulk_sender/internal/model"
)

// ParseError reports an unusable contact file.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse contacts: %s: %v", e.Reason, e.Err)
	}
	return "parse contacts: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads a .csv or spreadsheet file and returns its valid contacts.
func Parse(filename string, r io.Reader) ([]model.Contact, error) {
	rows, err := ReadRows(filename, r)
	if err != nil {
		return nil, err
	}
	out := Normalize(rows)
	if len(out) == 0 {
		return nil, &ParseError{Reason: "no valid contacts found; the file needs phone, name and message columns"}
	}
	return out, nil
}

// ReadRows decodes the file into header-keyed rows without validating them.
func ReadRows(filename string, r io.Reader) ([]Row, error) {
	var (
		table [][]string
		err   error
	)
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		table, err = readCSV(r)
	} else {
		table, err = readSpreadsheet(r)
	}
	if err != nil {
		return nil, err
	}
	table = dropBlankRows(table)
	if len(table) < 2 {
		return nil, &ParseError{Reason: "file must have a header row and at least one data row"}
	}

	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.ToLower(strings.Trim(strings.TrimSpace(h), `"`))
	}
	if !hasHeader(headers) {
		return nil, &ParseError{Reason: "header row has no column names"}
	}

	rows := make([]Row, 0, len(table)-1)
	for _, values := range table[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			v := ""
			if i < len(values) {
				v = strings.TrimSpace(values[i])
			}
			row[h] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Reason: "read file", Err: err}
	}
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	table, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{Reason: "invalid csv", Err: err}
	}
	return table, nil
}

func readSpreadsheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Reason: "invalid spreadsheet", Err: err}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Reason: "spreadsheet has no sheets"}
	}
	table, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Reason: "read sheet " + sheets[0], Err: err}
	}
	return table, nil
}

func dropBlankRows(table [][]string) [][]string {
	out := table[:0]
	for _, row := range table {
		for _, v := range row {
			if strings.TrimSpace(v) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func hasHeader(headers []string) bool {
	for _, h := range headers {
		if h != "" {
			return true
		}
	}
	return false
}

// IsParseError reports whether err came from a bad contact file.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
