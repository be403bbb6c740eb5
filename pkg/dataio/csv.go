// pkg/dataio/csv.go
package dataio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// readCSV reads a comma-delimited file with a header row
func (r *Reader) readCSV(path string) (*model.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// short rows are padded with nulls
	reader.FieldsPerRecord = -1
	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	return r.fromGrid(path, grid)
}

// WriteCSV writes the dataset as CSV with a header row. Nulls are empty cells.
func WriteCSV(w io.Writer, ds *model.Dataset) error {
	writer := csv.NewWriter(w)

	names := ds.ColumnNames()
	if err := writer.Write(names); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(names))
	for i, row := range ds.Rows {
		for j, name := range names {
			v := row[name]
			if converter.IsNull(v) {
				record[j] = ""
				continue
			}
			record[j] = converter.ToText(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
