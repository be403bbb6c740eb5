// pkg/converter/mapping.go
package converter

import (
	"math"

	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// InferKind determines the declared kind of a column from its loaded values.
// A column is numeric when it has at least one non-null value and every
// non-null value is a number; bool when every non-null value is a bool;
// text otherwise, including all-null columns.
func (c *TypeConverter) InferKind(values []interface{}) model.ColumnKind {
	var numbers, bools, nulls, integral int

	for _, v := range values {
		if IsNull(v) {
			nulls++
			continue
		}
		switch val := v.(type) {
		case float64:
			numbers++
			if val == math.Trunc(val) && !math.IsInf(val, 0) {
				integral++
			}
		case int64, int:
			numbers++
			integral++
		case bool:
			bools++
		default:
			return model.KindText
		}
	}

	nonNull := len(values) - nulls
	switch {
	case nonNull == 0:
		return model.KindText
	case numbers == nonNull:
		if c.config.DetectIntegers && nulls == 0 && integral == numbers {
			return model.KindInteger
		}
		return model.KindNumeric
	case bools == nonNull:
		return model.KindBool
	default:
		return model.KindText
	}
}

// ConvertDelimitedColumn turns raw text cells of one delimited column into
// typed values. Null tokens become nil; when every remaining cell parses as a
// number the whole column becomes float64.
func (c *TypeConverter) ConvertDelimitedColumn(cells []string) ([]interface{}, model.ColumnKind) {
	values := make([]interface{}, len(cells))
	numeric := true
	nonNull := 0

	for i, cell := range cells {
		if c.IsNullToken(cell) {
			values[i] = nil
			continue
		}
		nonNull++
		values[i] = cell
		if _, ok := ParseNumber(cell); !ok {
			numeric = false
		}
	}

	if nonNull > 0 && numeric {
		for i, v := range values {
			if v == nil {
				continue
			}
			f, _ := ParseNumber(v.(string))
			values[i] = f
		}
	}

	return values, c.InferKind(values)
}

// InferDatasetKinds sets every column kind of the dataset from its values
func (c *TypeConverter) InferDatasetKinds(ds *model.Dataset) {
	for i := range ds.Columns {
		ds.Columns[i].Kind = c.InferKind(ds.Values(ds.Columns[i].Name))
	}
}
