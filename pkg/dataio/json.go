// pkg/dataio/json.go
package dataio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/David-Botos/cyberattack-ingress/pkg/converter"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// readJSON reads an array of flat objects. Key order of first appearance
// becomes the column order; keys missing from a record are null.
func (r *Reader) readJSON(path string) (*model.Dataset, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}
	return r.DecodeJSON(body)
}

// DecodeJSON parses a JSON records array into a dataset with inferred kinds
func (r *Reader) DecodeJSON(body []byte) (*model.Dataset, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON document")
	}

	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, errors.New("expected a JSON array of records")
	}

	ds := model.NewDataset("")
	seen := make(map[string]bool)
	var parseErr error

	root.ForEach(func(_, record gjson.Result) bool {
		if !record.IsObject() {
			parseErr = fmt.Errorf("record %d is not an object", len(ds.Rows))
			return false
		}

		row := make(model.Row)
		record.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if !seen[name] {
				seen[name] = true
				ds.Columns = append(ds.Columns, model.Column{Name: name})
			}
			row[name] = jsonValue(value)
			return true
		})
		ds.Rows = append(ds.Rows, row)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	r.converter.InferDatasetKinds(ds)
	return ds, nil
}

// maxExactFloat is the largest magnitude below which every integer has an
// exact float64 form
const maxExactFloat = 1 << 53

// jsonValue maps a gjson value onto a cell value
func jsonValue(value gjson.Result) interface{} {
	switch value.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		if math.Abs(value.Num) > maxExactFloat {
			if n, err := strconv.ParseInt(value.Raw, 10, 64); err == nil {
				return n
			}
		}
		return value.Num
	case gjson.String:
		return value.Str
	default:
		// nested arrays and objects are kept verbatim as text
		return value.Raw
	}
}

// EncodeJSON renders the dataset as an array of flat objects with keys in
// column order, indented by four spaces
func EncodeJSON(ds *model.Dataset) ([]byte, error) {
	var compact bytes.Buffer
	names := ds.ColumnNames()

	compact.WriteByte('[')
	for i, row := range ds.Rows {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('{')
		for j, name := range names {
			if j > 0 {
				compact.WriteByte(',')
			}
			if err := appendJSONString(&compact, name); err != nil {
				return nil, err
			}
			compact.WriteByte(':')
			if err := appendJSONValue(&compact, row[name]); err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", i, name, err)
			}
		}
		compact.WriteByte('}')
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, fmt.Errorf("failed to indent JSON: %w", err)
	}
	return out.Bytes(), nil
}

// WriteJSON writes the dataset as an indented JSON records array
func WriteJSON(w io.Writer, ds *model.Dataset) error {
	body, err := EncodeJSON(ds)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func appendJSONValue(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		return appendJSONString(buf, val)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(converter.FormatNumber(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	default:
		return appendJSONString(buf, converter.ToText(val))
	}
	return nil
}

func appendJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
