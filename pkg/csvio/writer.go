package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/wehubfusion/Minos/pkg/row"
)

// WriteResults writes the result CSV: one record per row with postal code,
// address, judgement, and note. The file gets a UTF-8 BOM so Excel on
// Japanese Windows opens it correctly.
func WriteResults(path string, rows []row.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result csv: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	for _, r := range rows {
		record := []string{r.PostalCode, r.Address, string(r.Judgement), r.Note}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write result record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush result csv: %w", err)
	}

	return f.Sync()
}

// MarshalResults renders the result CSV to a byte slice, BOM included.
// Used when archiving results to blob storage.
func MarshalResults(rows []row.Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	for _, r := range rows {
		if err := w.Write([]string{r.PostalCode, r.Address, string(r.Judgement), r.Note}); err != nil {
			return nil, fmt.Errorf("failed to marshal result record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to marshal result csv: %w", err)
	}

	return buf.Bytes(), nil
}
