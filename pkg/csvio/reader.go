// Package csvio reads the input record CSV and writes the result CSV. Input
// files come from spreadsheet exports on Japanese Windows machines, so the
// reader accepts UTF-8 with BOM, Shift_JIS (cp932), and plain UTF-8.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads a CSV file and returns its raw records. Field counts are
// not enforced; validation assigns statuses per record downstream.
func ReadFile(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv file: %w", err)
	}
	return parse(data)
}

// parse decodes the byte payload to UTF-8 and parses it as CSV.
func parse(data []byte) ([][]string, error) {
	text, err := decode(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

// decode normalizes the payload to UTF-8: BOM-prefixed UTF-8 first, then
// plain UTF-8, then Shift_JIS.
func decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[len(utf8BOM):], nil
	}
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("unsupported csv encoding: %w", err)
	}
	return decoded, nil
}
