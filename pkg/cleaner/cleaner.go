// pkg/cleaner/cleaner.go
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/connector"
	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/dataio"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// AuditTable is the table cleaning operations are recorded in
const AuditTable = "cleaned_on_ingress"

// CleanResult describes the outcome of cleaning one dataset
type CleanResult struct {
	RunID         string         `json:"run_id"`
	InputRows     int            `json:"input_rows"`
	OutputRows    int            `json:"output_rows"`
	ColumnCount   int            `json:"column_count"`
	Operations    map[string]int `json:"operations"`
	ParseFailures int            `json:"parse_failures"`
	FailedColumns map[string]int `json:"failed_columns,omitempty"` // Parse failures per column
	Skipped       []string       `json:"skipped,omitempty"`        // Steps skipped for a missing column
	Audited       bool           `json:"audited"`
	AuditError    string         `json:"audit_error,omitempty"`
	OutputPath    string         `json:"output_path,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
}

// DataCleaner normalizes a merged dataset and optionally records every
// change it makes in an audit table
type DataCleaner struct {
	store     connector.Store // Optional audit store
	converter *converter.TypeConverter
	reader    *dataio.Reader
	logger    *zap.Logger
}

// NewDataCleaner creates a new DataCleaner. When store is not nil the audit
// table is created if needed.
func NewDataCleaner(store connector.Store, tc *converter.TypeConverter, logger *zap.Logger) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if tc == nil {
		tc = converter.NewTypeConverter(logger)
	}

	cleaner := &DataCleaner{
		store:     store,
		converter: tc,
		reader:    dataio.NewReader(tc, logger),
		logger:    logger.Named("cleaner"),
	}

	if store != nil {
		// Ensure the cleaning table exists
		if err := cleaner.setupCleaningTable(); err != nil {
			return nil, fmt.Errorf("failed to setup cleaning table: %w", err)
		}
	}

	return cleaner, nil
}

// setupCleaningTable ensures the cleaned_on_ingress tracking table exists
func (c *DataCleaner) setupCleaningTable() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	tsColumn := "TIMESTAMP DEFAULT CURRENT_TIMESTAMP"
	if c.store.IsPostgres() {
		idColumn = "BIGSERIAL PRIMARY KEY"
		tsColumn = "TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP"
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS ` + AuditTable + ` (
			id ` + idColumn + `,
			run_id TEXT NOT NULL,
			dataset_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			original_value TEXT,
			new_value TEXT,
			row_index INTEGER NOT NULL,
			cleaning_operation TEXT NOT NULL,
			cleaning_reason TEXT NOT NULL,
			cleaned_at ` + tsColumn + `
		)
	`
	_, err := c.store.ExecWithTimeout(context.Background(), createTableSQL, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to create tracking table: %w", err)
	}

	c.logger.Info("Ensured cleaned_on_ingress table exists", zap.Bool("postgres", c.store.IsPostgres()))
	return nil
}

// CleanFile reads the merged dataset at inPath, cleans it and atomically
// replaces outPath with the result. The run id is taken from ctx.
func (c *DataCleaner) CleanFile(ctx context.Context, inPath, outPath string) (*CleanResult, error) {
	startTime := time.Now()

	ds, err := c.reader.ReadFile(inPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("clean cancelled: %w", err)
	}

	runID := model.RunIDFromContext(ctx)
	cleaned, operations, result := c.clean(ds, runID)

	staged, err := dataio.StageDataset(outPath, cleaned)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		staged.Discard()
		return nil, fmt.Errorf("clean cancelled: %w", err)
	}
	if err := staged.Commit(); err != nil {
		return nil, err
	}
	result.OutputPath = outPath

	// Audit problems never block the cleaned output
	if c.store != nil {
		if err := c.RecordCleaningOperations(ctx, operations); err != nil {
			c.logger.Warn("Failed to record cleaning operations",
				zap.String("run_id", runID),
				zap.Error(err))
			result.AuditError = err.Error()
		} else {
			result.Audited = true
		}
	}

	result.ExecutionTime = time.Since(startTime)
	c.logger.Info("Wrote cleaned dataset",
		zap.String("run_id", runID),
		zap.String("path", outPath),
		zap.Int("rows", result.OutputRows),
		zap.Int("columns", result.ColumnCount),
		zap.Duration("duration", result.ExecutionTime))

	return result, nil
}

// Clean applies the cleaning steps to a copy of ds and returns it along with
// every operation performed. The input is not modified.
func (c *DataCleaner) Clean(ds *model.Dataset) (*model.Dataset, []model.CleaningOperation, error) {
	if ds == nil {
		return nil, nil, errors.New("dataset cannot be nil")
	}
	cleaned, operations, _ := c.clean(ds, model.RunIDFromContext(context.Background()))
	return cleaned, operations, nil
}

func (c *DataCleaner) clean(ds *model.Dataset, runID string) (*model.Dataset, []model.CleaningOperation, *CleanResult) {
	out := ds.Clone()
	s := &cleanState{
		runID:   runID,
		dataset: out,
		result: &CleanResult{
			RunID:         runID,
			InputRows:     ds.Len(),
			Operations:    make(map[string]int),
			FailedColumns: make(map[string]int),
		},
	}

	c.dropUnnamed(s)
	c.fillMissing(s)
	c.normalizeAttackType(s)
	c.foldCategory(s)
	c.splitCategory(s)
	c.coerceColumns(s)

	for _, op := range s.operations {
		s.result.Operations[op.CleaningOperation]++
	}
	s.result.OutputRows = out.Len()
	s.result.ColumnCount = len(out.Columns)

	c.logger.Info("Cleaned dataset",
		zap.String("run_id", runID),
		zap.String("dataset", ds.Name),
		zap.Int("rows", out.Len()),
		zap.Int("operations", len(s.operations)),
		zap.Int("parse_failures", s.result.ParseFailures),
		zap.Strings("skipped", s.result.Skipped))

	return out, s.operations, s.result
}

// RecordCleaningOperations batch inserts cleaning operations into tracking table
func (c *DataCleaner) RecordCleaningOperations(ctx context.Context, operations []model.CleaningOperation) error {
	if c.store == nil {
		return errors.New("no audit database configured")
	}
	if len(operations) == 0 {
		return nil
	}

	err := c.store.InTx(ctx, 30*time.Second, func(ctx context.Context, tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO `+AuditTable+`
			(run_id, dataset_name, column_name, original_value, new_value,
			 row_index, cleaning_operation, cleaning_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, op := range operations {
			_, err = stmt.ExecContext(ctx,
				op.RunID,
				op.DatasetName,
				op.ColumnName,
				toNullableString(op.OriginalValue),
				toNullableString(op.NewValue),
				op.RowIndex,
				op.CleaningOperation,
				op.CleaningReason,
			)
			if err != nil {
				return fmt.Errorf("failed to insert cleaning operation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("Recorded cleaning operations", zap.Int("count", len(operations)))
	return nil
}

// AuditRecord is one persisted cleaning operation
type AuditRecord struct {
	ID                int64   `db:"id"`
	RunID             string  `db:"run_id"`
	DatasetName       string  `db:"dataset_name"`
	ColumnName        string  `db:"column_name"`
	OriginalValue     *string `db:"original_value"`
	NewValue          *string `db:"new_value"`
	RowIndex          int     `db:"row_index"`
	CleaningOperation string  `db:"cleaning_operation"`
	CleaningReason    string  `db:"cleaning_reason"`
}

// AuditedOperations returns the recorded operations of one run in insertion order
func (c *DataCleaner) AuditedOperations(ctx context.Context, runID string) ([]AuditRecord, error) {
	if c.store == nil {
		return nil, errors.New("no audit database configured")
	}

	var records []AuditRecord
	query := `
		SELECT id, run_id, dataset_name, column_name, original_value, new_value,
		       row_index, cleaning_operation, cleaning_reason
		FROM ` + AuditTable + `
		WHERE run_id = ?
		ORDER BY id
	`
	if err := c.store.SelectWithTimeout(ctx, &records, query, 10*time.Second, runID); err != nil {
		return nil, fmt.Errorf("failed to query cleaning operations: %w", err)
	}
	return records, nil
}

// ValidateCleaned checks a cleaned dataset against the guarantees the
// cleaner gives. It returns one error per violated guarantee.
func (c *DataCleaner) ValidateCleaned(ds *model.Dataset) []error {
	if ds == nil {
		return []error{errors.New("dataset cannot be nil")}
	}

	var validationErrors []error
	if ds.HasColumn(model.ColUnnamed15) {
		validationErrors = append(validationErrors, fmt.Errorf("column %s still present", model.ColUnnamed15))
	}
	for _, name := range splitColumns {
		if !ds.HasColumn(name) {
			validationErrors = append(validationErrors, fmt.Errorf("column %s missing", name))
		}
	}

	for _, col := range ds.Columns {
		if nullableColumns[col.Name] || isSplitColumn(col.Name) {
			continue
		}
		for i, row := range ds.Rows {
			if err := validateCell(col, row[col.Name]); err != nil {
				validationErrors = append(validationErrors, fmt.Errorf("row %d, column %s: %w", i, col.Name, err))
				break
			}
		}
	}

	return validationErrors
}
