// pkg/converter/values.go
package converter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// IsNull determines if a value should be treated as null
func IsNull(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	default:
		return false
	}
}

// ToText converts a non-null value to its text representation
func ToText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return FormatNumber(v)
	case float32:
		return FormatNumber(float64(v))
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatNumber renders a float the way JSON encoders do: plain decimal
// notation in the common range, exponent form for very large or tiny values
func FormatNumber(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseNumber parses a decimal number from text. Non-finite results and
// non-decimal notations are rejected.
func ParseNumber(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" || strings.ContainsAny(cleaned, "xX_") {
		return 0, false
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToNullableFloat coerces a value to float64. The boolean result is false when
// the value is null or cannot be read as a finite number.
func (c *TypeConverter) ToNullableFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return c.ToNullableFloat(float64(v))
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, ok := ParseNumber(v)
		if !ok {
			c.logger.Debug("Value is not numeric", zap.String("value", v))
		}
		return f, ok
	default:
		return 0, false
	}
}

// ToNullableInt coerces a value to int64. Values that are not numeric, not
// integral or out of range yield false.
func (c *TypeConverter) ToNullableInt(value interface{}) (int64, bool) {
	if v, ok := value.(int64); ok {
		return v, true
	}

	f, ok := c.ToNullableFloat(value)
	if !ok {
		return 0, false
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		c.logger.Debug("Value is not a representable integer", zap.Float64("value", f))
		return 0, false
	}
	return int64(f), true
}
