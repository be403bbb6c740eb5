// pkg/dataio/excel.go
package dataio

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// readExcel reads the first sheet of a workbook. The first row is the header.
func (r *Reader) readExcel(path string) (*model.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	r.logger.Debug("Read Excel sheet",
		zap.String("sheet", sheets[0]),
		zap.Int("rows", len(rows)))

	return r.fromGrid(path, rows)
}
