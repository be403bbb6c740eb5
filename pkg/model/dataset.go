// pkg/model/dataset.go
package model

import "strings"

// Well-known column names of the cyberattack dataset
const (
	ColAttackType     = "attack_type"
	ColCategory       = "category"
	ColCountry        = "country"
	ColTargetIndustry = "target_industry"
	ColImpact         = "impact"
	ColFinancialLoss  = "financial_loss_(in_million_$)"
	ColAffectedUsers  = "number_of_affected_users"
	ColID             = "id"
	ColIndustry       = "industry"
	ColCause          = "cause"
	ColMainCategory   = "main_category"
	ColSubCategory    = "sub_category"
	ColTopic          = "topic"
	ColUnnamed15      = "unnamed:_15"
)

// UnknownValue is the sentinel used in place of missing text data
const UnknownValue = "Unknown"

// ColumnKind is the declared type of a column at load time
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
	KindInteger
	KindBool
)

// String returns a string representation of the column kind
func (k ColumnKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumeric:
		return "numeric"
	case KindInteger:
		return "integer"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// IsNumber reports whether values of this kind are numbers
func (k ColumnKind) IsNumber() bool {
	return k == KindNumeric || k == KindInteger
}

// Column describes one column of a dataset
type Column struct {
	Name string     // Normalized column name
	Kind ColumnKind // Declared kind at load time
}

// Row is a single record keyed by column name. A missing key and a nil value
// both mean null.
type Row map[string]interface{}

// Dataset is an ordered, fully materialized table of records
type Dataset struct {
	Name    string   // Logical name, used in logs and audit records
	Columns []Column // Column definitions in output order
	Rows    []Row    // Records
}

// NewDataset creates an empty dataset with the given columns
func NewDataset(name string, columns ...Column) *Dataset {
	return &Dataset{
		Name:    name,
		Columns: columns,
		Rows:    make([]Row, 0),
	}
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// ColumnNames returns the column names in order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// GetColumnByName returns a column by exact name.
// Returns nil if column not found
func (d *Dataset) GetColumnByName(name string) *Column {
	for i, col := range d.Columns {
		if col.Name == name {
			return &d.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether the dataset has a column with the given name
func (d *Dataset) HasColumn(name string) bool {
	return d.GetColumnByName(name) != nil
}

// AddColumn appends a column, or updates its kind if it already exists
func (d *Dataset) AddColumn(col Column) {
	if existing := d.GetColumnByName(col.Name); existing != nil {
		existing.Kind = col.Kind
		return
	}
	d.Columns = append(d.Columns, col)
}

// DropColumn removes a column and its values. Returns false if the column
// was not present.
func (d *Dataset) DropColumn(name string) bool {
	idx := -1
	for i, col := range d.Columns {
		if col.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	d.Columns = append(d.Columns[:idx], d.Columns[idx+1:]...)
	for _, row := range d.Rows {
		delete(row, name)
	}
	return true
}

// Values returns the values of one column in row order
func (d *Dataset) Values(name string) []interface{} {
	values := make([]interface{}, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[name]
	}
	return values
}

// Clone returns a deep copy of the dataset structure. Cell values are
// immutable scalars so they are shared.
func (d *Dataset) Clone() *Dataset {
	clone := &Dataset{
		Name:    d.Name,
		Columns: make([]Column, len(d.Columns)),
		Rows:    make([]Row, len(d.Rows)),
	}
	copy(clone.Columns, d.Columns)
	for i, row := range d.Rows {
		r := make(Row, len(row))
		for k, v := range row {
			r[k] = v
		}
		clone.Rows[i] = r
	}
	return clone
}

// NormalizeColumnName trims a header, lowercases it and replaces every run of
// whitespace with a single underscore
func NormalizeColumnName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}
