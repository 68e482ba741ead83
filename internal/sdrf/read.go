package sdrf

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTSV parses a tab-separated SDRF file. A leading UTF-8 byte order mark
// is ignored and short rows are padded to the header width.
func ReadTSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &Error{Message: "file is empty"}
	}
	if err != nil {
		return nil, &Error{Message: "failed to read header", Cause: err}
	}

	table := &Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Message: "failed to read row", Cause: err}
		}
		if len(rec) > len(header) {
			return nil, &Error{Message: "row has more fields than the header"}
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}
