// pkg/dataio/reader.go
package dataio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// Reader loads tabular files into datasets
type Reader struct {
	converter *converter.TypeConverter
	logger    *zap.Logger
}

// NewReader creates a new Reader
func NewReader(tc *converter.TypeConverter, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tc == nil {
		tc = converter.NewTypeConverter(logger)
	}
	return &Reader{
		converter: tc,
		logger:    logger,
	}
}

// ReadFile loads a dataset, choosing the format from the file extension.
// A missing file yields an ErrorKindMissingInput error, an unreadable one
// ErrorKindMalformedInput.
func (r *Reader) ReadFile(path string) (*model.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.NewError(model.ErrorKindMissingInput, "read", path, err)
		}
		return nil, model.NewError(model.ErrorKindMalformedInput, "read", path, err)
	}
	if info.IsDir() {
		return nil, model.NewError(model.ErrorKindMalformedInput, "read", path,
			errors.New("path is a directory"))
	}

	var ds *model.Dataset
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		ds, err = r.readCSV(path)
	case ".xlsx":
		ds, err = r.readExcel(path)
	case ".json":
		ds, err = r.readJSON(path)
	default:
		err = fmt.Errorf("unsupported file type: %q", ext)
	}
	if err != nil {
		var classified *model.Error
		if errors.As(err, &classified) {
			return nil, err
		}
		return nil, model.NewError(model.ErrorKindMalformedInput, "read", path, err)
	}

	ds.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	r.logger.Info("Loaded dataset",
		zap.String("path", path),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns)))
	return ds, nil
}

// fromGrid converts a header row plus string records into a typed dataset
func (r *Reader) fromGrid(path string, grid [][]string) (*model.Dataset, error) {
	if len(grid) == 0 {
		return nil, errors.New("file has no header row")
	}

	headers := make([]string, len(grid[0]))
	seen := make(map[string]bool, len(headers))
	for i, h := range grid[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.TrimSpace(h) == "" {
			// unnamed columns get positional names, like dataframe readers do
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[h] {
			return nil, model.NewError(model.ErrorKindSchemaMismatch, "read", path,
				fmt.Errorf("duplicate column %q", h))
		}
		seen[h] = true
		headers[i] = h
	}

	records := grid[1:]
	ds := model.NewDataset("")
	ds.Rows = make([]model.Row, len(records))
	for i := range ds.Rows {
		ds.Rows[i] = make(model.Row, len(headers))
	}

	for col, name := range headers {
		cells := make([]string, len(records))
		for i, rec := range records {
			if col < len(rec) {
				cells[i] = rec[col]
			}
		}

		values, kind := r.converter.ConvertDelimitedColumn(cells)
		for i, v := range values {
			ds.Rows[i][name] = v
		}
		ds.Columns = append(ds.Columns, model.Column{Name: name, Kind: kind})
	}

	return ds, nil
}
