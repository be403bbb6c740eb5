// pkg/converter/converter.go
package converter

import (
	"go.uber.org/zap"
)

// TypeConverter handles type inference and conversion of cell values
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Cell contents treated as null when reading delimited sources
	NullTokens []string
	// Whether integer-valued columns without nulls are reported as KindInteger
	DetectIntegers bool
}

// DefaultNullTokens mirrors the missing-value markers recognised by common
// dataframe tooling when reading CSV
var DefaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		NullTokens:     DefaultNullTokens,
		DetectIntegers: true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// IsNullToken reports whether a raw delimited cell represents a missing value
func (c *TypeConverter) IsNullToken(cell string) bool {
	for _, token := range c.config.NullTokens {
		if cell == token {
			return true
		}
	}
	return false
}
