// pkg/model/cleaning.go
package model

import (
	"time"
)

// Cleaning operation names
const (
	OpDropColumn      = "drop_column"
	OpFillNumeric     = "fill_numeric"
	OpFillText        = "fill_text"
	OpTextCoercion    = "text_coercion"
	OpStripChars      = "strip_characters"
	OpASCIIFold       = "ascii_normalization"
	OpCategorySplit   = "category_split"
	OpCoerceFailed    = "type_coercion_failed"
	OpCoerceSucceeded = "type_standardization"
)

// CleaningOperation represents a single data cleaning operation
type CleaningOperation struct {
	RunID             string      // Pipeline run that produced the operation
	DatasetName       string      // Logical dataset name
	ColumnName        string      // Column that was cleaned
	OriginalValue     interface{} // Original value (may be nil)
	NewValue          interface{} // New value after cleaning (may be nil)
	RowIndex          int         // Zero-based row position, -1 for column-level operations
	CleaningOperation string      // Type of cleaning performed (e.g., "fill_text")
	CleaningReason    string      // Reason for cleaning (e.g., "missing_value")
	CleanedAt         time.Time   // When the cleaning occurred (set by database)
}

// CleaningContext contains information needed for cleaning a value
type CleaningContext struct {
	RunID       string
	DatasetName string
	ColumnName  string
	RowIndex    int
	Kind        ColumnKind
}

// Operation builds a CleaningOperation for this context
func (c CleaningContext) Operation(op, reason string, original, updated interface{}) CleaningOperation {
	return CleaningOperation{
		RunID:             c.RunID,
		DatasetName:       c.DatasetName,
		ColumnName:        c.ColumnName,
		OriginalValue:     original,
		NewValue:          updated,
		RowIndex:          c.RowIndex,
		CleaningOperation: op,
		CleaningReason:    reason,
	}
}
