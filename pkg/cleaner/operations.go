// pkg/cleaner/operations.go
package cleaner

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// CategorySeparator separates the levels of a category path
const CategorySeparator = "->"

// splitColumns receive the levels of the category path, in order
var splitColumns = []string{model.ColMainCategory, model.ColSubCategory, model.ColTopic}

// nullableColumns may hold nulls after cleaning
var nullableColumns = map[string]bool{
	model.ColID:            true,
	model.ColFinancialLoss: true,
	model.ColAffectedUsers: true,
}

// cleanState carries one cleaning pass
type cleanState struct {
	runID      string
	dataset    *model.Dataset
	operations []model.CleaningOperation
	result     *CleanResult
}

func (s *cleanState) context(column string, row int, kind model.ColumnKind) model.CleaningContext {
	return model.CleaningContext{
		RunID:       s.runID,
		DatasetName: s.dataset.Name,
		ColumnName:  column,
		RowIndex:    row,
		Kind:        kind,
	}
}

func (s *cleanState) record(op model.CleaningOperation) {
	s.operations = append(s.operations, op)
}

// dropUnnamed removes the stray index column left by spreadsheet exports
func (c *DataCleaner) dropUnnamed(s *cleanState) {
	if !s.dataset.DropColumn(model.ColUnnamed15) {
		return
	}
	s.record(s.context(model.ColUnnamed15, -1, model.KindText).
		Operation(model.OpDropColumn, "unused_export_column", nil, nil))
	c.logger.Debug("Dropped column", zap.String("column", model.ColUnnamed15))
}

// fillMissing replaces nulls by load-time kind. Numeric columns get 0; every
// other column gets "Unknown" and all of its values become text.
func (c *DataCleaner) fillMissing(s *cleanState) {
	ds := s.dataset
	for i := range ds.Columns {
		col := &ds.Columns[i]

		if col.Kind.IsNumber() {
			for r, row := range ds.Rows {
				if converter.IsNull(row[col.Name]) {
					s.record(s.context(col.Name, r, col.Kind).
						Operation(model.OpFillNumeric, "missing_value", row[col.Name], 0.0))
					row[col.Name] = 0.0
				}
			}
			continue
		}

		for r, row := range ds.Rows {
			value := row[col.Name]
			switch {
			case converter.IsNull(value):
				s.record(s.context(col.Name, r, col.Kind).
					Operation(model.OpFillText, "missing_value", nil, model.UnknownValue))
				row[col.Name] = model.UnknownValue
			default:
				if _, ok := value.(string); ok {
					continue
				}
				text := converter.ToText(value)
				s.record(s.context(col.Name, r, col.Kind).
					Operation(model.OpTextCoercion, "non_text_value", value, text))
				row[col.Name] = text
			}
		}
		col.Kind = model.KindText
	}
}

// normalizeAttackType keeps only ASCII letters, digits and whitespace in
// attack_type
func (c *DataCleaner) normalizeAttackType(s *cleanState) {
	if !c.requireColumn(s, model.ColAttackType, "attack_type_normalization") {
		return
	}
	c.rewriteText(s, model.ColAttackType, model.OpStripChars, "special_characters", converter.KeepAlnumSpace)
}

// foldCategory drops every non-ASCII rune from category
func (c *DataCleaner) foldCategory(s *cleanState) {
	if !c.requireColumn(s, model.ColCategory, "category_ascii") {
		return
	}
	c.rewriteText(s, model.ColCategory, model.OpASCIIFold, "non_ascii_characters", converter.StripNonASCII)
}

// splitCategory derives main_category, sub_category and topic from the
// category path. The three columns always exist afterwards.
func (c *DataCleaner) splitCategory(s *cleanState) {
	ds := s.dataset
	hasCategory := c.requireColumn(s, model.ColCategory, "category_split")

	for _, name := range splitColumns {
		ds.AddColumn(model.Column{Name: name, Kind: model.KindText})
	}

	for _, row := range ds.Rows {
		parts := make([]interface{}, len(splitColumns))
		if hasCategory {
			if text, ok := row[model.ColCategory].(string); ok {
				parts = converter.SplitLimited(text, CategorySeparator, len(splitColumns))
			}
		}
		for i, name := range splitColumns {
			row[name] = parts[i]
		}
	}

	if hasCategory {
		s.record(s.context(model.ColCategory, -1, model.KindText).
			Operation(model.OpCategorySplit, "derive_category_levels", nil, strings.Join(splitColumns, ",")))
	}
}

// coerceColumns converts id to a nullable integer and the loss and
// affected-user columns to nullable floats. Values that do not convert
// become null, including the "Unknown" placed by fillMissing.
func (c *DataCleaner) coerceColumns(s *cleanState) {
	c.coerce(s, model.ColID, model.KindInteger, func(v interface{}) (interface{}, bool) {
		i, ok := c.converter.ToNullableInt(v)
		return i, ok
	})
	for _, name := range []string{model.ColFinancialLoss, model.ColAffectedUsers} {
		c.coerce(s, name, model.KindNumeric, func(v interface{}) (interface{}, bool) {
			f, ok := c.converter.ToNullableFloat(v)
			return f, ok
		})
	}
}

func (c *DataCleaner) coerce(
	s *cleanState,
	name string,
	kind model.ColumnKind,
	convert func(interface{}) (interface{}, bool),
) {
	col := s.dataset.GetColumnByName(name)
	if col == nil {
		c.skip(s, name, "type_coercion")
		return
	}

	failures := 0
	for r, row := range s.dataset.Rows {
		original := row[name]
		converted, ok := convert(original)
		if !ok {
			if !converter.IsNull(original) {
				failures++
				s.record(s.context(name, r, col.Kind).
					Operation(model.OpCoerceFailed, "cannot_convert_to_"+kind.String(), original, nil))
			}
			row[name] = nil
			continue
		}
		if _, wasText := original.(string); wasText {
			s.record(s.context(name, r, col.Kind).
				Operation(model.OpCoerceSucceeded, "text_to_"+kind.String(), original, converted))
		}
		row[name] = converted
	}
	col.Kind = kind

	if failures > 0 {
		s.result.ParseFailures += failures
		s.result.FailedColumns[name] += failures
		c.logger.Debug("Values could not be coerced",
			zap.String("column", name),
			zap.String("kind", kind.String()),
			zap.Int("count", failures))
	}
}

// rewriteText applies fn to every text value of a column, recording changes
func (c *DataCleaner) rewriteText(s *cleanState, name, op, reason string, fn func(string) string) {
	for r, row := range s.dataset.Rows {
		text, ok := row[name].(string)
		if !ok {
			continue
		}
		if cleaned := fn(text); cleaned != text {
			s.record(s.context(name, r, model.KindText).Operation(op, reason, text, cleaned))
			row[name] = cleaned
		}
	}
}

// requireColumn reports whether a column exists, recording a skipped step
// when it does not
func (c *DataCleaner) requireColumn(s *cleanState, name, step string) bool {
	if s.dataset.HasColumn(name) {
		return true
	}
	c.skip(s, name, step)
	return false
}

func (c *DataCleaner) skip(s *cleanState, column, step string) {
	for _, existing := range s.result.Skipped {
		if existing == step {
			return
		}
	}
	s.result.Skipped = append(s.result.Skipped, step)
	c.logger.Warn("Skipping cleaning step",
		zap.String("step", step),
		zap.String("column", column),
		zap.Stringer("kind", model.ErrorKindPartialData))
}

// Helper functions

func isSplitColumn(name string) bool {
	for _, s := range splitColumns {
		if s == name {
			return true
		}
	}
	return false
}

// validateCell checks a single non-nullable cell of a cleaned dataset
func validateCell(col model.Column, value interface{}) error {
	if converter.IsNull(value) {
		return errors.New("unexpected null")
	}

	if col.Kind.IsNumber() {
		switch value.(type) {
		case float64, int64, int:
			return nil
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	}

	text, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected text, got %T", value)
	}
	switch col.Name {
	case model.ColAttackType:
		if converter.KeepAlnumSpace(text) != text {
			return fmt.Errorf("attack type %q has special characters", text)
		}
	case model.ColCategory:
		if converter.StripNonASCII(text) != text {
			return fmt.Errorf("category %q has non-ASCII characters", text)
		}
	}
	return nil
}

// toNullableString safely converts an interface to a nullable string
func toNullableString(v interface{}) sql.NullString {
	if converter.IsNull(v) {
		return sql.NullString{}
	}
	return sql.NullString{String: converter.ToText(v), Valid: true}
}
