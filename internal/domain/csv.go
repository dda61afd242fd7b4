package domain

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedCSV wraps any structural CSV failure: bad quoting, ragged rows,
// or content without a header row where one is required.
var ErrMalformedCSV = errors.New("malformed csv")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV parses CSV content with a header row into column-keyed rows.
// Empty content yields zero rows. Blank lines are skipped; a row whose field
// count differs from the header fails the whole parse.
func ParseCSV(data []byte) ([]Row, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedCSV, err)
	}

	var rows []Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}

		row := make(Row, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseUpload parses an uploaded dataset. Unlike ParseCSV, content without at
// least one data row is rejected so an upload cannot wipe a dataset.
func ParseUpload(data []byte) ([]Row, error) {
	if len(bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedCSV)
	}
	rows, err := ParseCSV(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedCSV)
	}
	return rows, nil
}
