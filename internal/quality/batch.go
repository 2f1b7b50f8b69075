package quality

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Input errors. Assess never surfaces these to callers; they turn into a
// critical report.
var (
	ErrEmptyBatch     = errors.New("empty batch")
	ErrMalformedBatch = errors.New("malformed batch")
)

// DataType selects the validator strategy
type DataType string

const (
	DataTypeKline   DataType = "kline"
	DataTypeQuote   DataType = "quote"
	DataTypeGeneric DataType = "generic"
)

// ParseDataType maps a free-form type name onto a known strategy
func ParseDataType(s string) DataType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kline", "ohlc", "ohlcv", "bar", "candle":
		return DataTypeKline
	case "quote", "tick", "realtime", "snapshot":
		return DataTypeQuote
	default:
		return DataTypeGeneric
	}
}

// Shape describes how the raw input was interpreted
type Shape string

const (
	ShapeTabular Shape = "tabular"
	ShapeRecord  Shape = "record" // flat map
	ShapeList    Shape = "list"   // list of scalars
)

// Column name groups
var (
	timestampColumns = []string{"timestamp", "datetime", "time", "date"}
	symbolColumns    = []string{"symbol", "code", "ts_code"}
	priceColumns     = []string{"open", "high", "low", "close"}
	flowHints        = []string{"volume", "amount", "vol", "turnover", "qty", "quantity"}
)

// Batch is a normalized tabular data batch
type Batch struct {
	Rows    []map[string]interface{}
	Columns []string // sorted union of row keys

	numeric []string
}

// Input is the normalized form of whatever was passed to assess
type Input struct {
	Shape  Shape
	Batch  *Batch         // tabular
	Values []interface{} // record/list
}

// Normalize interprets raw data. Keys are lower-cased and trimmed.
func Normalize(data interface{}) (*Input, error) {
	switch v := data.(type) {
	case nil:
		return nil, ErrEmptyBatch
	case *Batch:
		if v == nil || len(v.Rows) == 0 {
			return nil, ErrEmptyBatch
		}
		return tabular(v.Rows)
	case []map[string]interface{}:
		if len(v) == 0 {
			return nil, ErrEmptyBatch
		}
		return tabular(v)
	case []interface{}:
		return normalizeList(v)
	case map[string]interface{}:
		return normalizeMap(v)
	case json.RawMessage:
		return normalizeJSON(v)
	case []byte:
		return normalizeJSON(v)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformedBatch, data)
	}
}

func normalizeJSON(raw []byte) (*Input, error) {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	return Normalize(decoded)
}

func normalizeList(items []interface{}) (*Input, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}

	rows := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			rows = append(rows, m)
		}
	}

	switch {
	case len(rows) == len(items):
		return tabular(rows)
	case len(rows) == 0:
		return &Input{Shape: ShapeList, Values: items}, nil
	default:
		return nil, fmt.Errorf("%w: mixed rows and scalars", ErrMalformedBatch)
	}
}

// normalizeMap accepts a flat record or a column-oriented table
func normalizeMap(m map[string]interface{}) (*Input, error) {
	if len(m) == 0 {
		return nil, ErrEmptyBatch
	}

	if rows, ok := columnar(m); ok {
		return tabular(rows)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]interface{}, 0, len(m))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return &Input{Shape: ShapeRecord, Values: values}, nil
}

// columnar detects {"close": [..], "open": [..]} with equal-length slices
func columnar(m map[string]interface{}) ([]map[string]interface{}, bool) {
	length := -1
	for _, v := range m {
		rv := reflect.ValueOf(v)
		if v == nil || rv.Kind() != reflect.Slice {
			return nil, false
		}
		if length == -1 {
			length = rv.Len()
		} else if rv.Len() != length {
			return nil, false
		}
	}
	if length <= 0 {
		return nil, false
	}

	rows := make([]map[string]interface{}, length)
	for i := range rows {
		rows[i] = make(map[string]interface{}, len(m))
	}
	for k, v := range m {
		rv := reflect.ValueOf(v)
		for i := 0; i < length; i++ {
			rows[i][k] = rv.Index(i).Interface()
		}
	}
	return rows, true
}

func tabular(raw []map[string]interface{}) (*Input, error) {
	seen := make(map[string]struct{})
	rows := make([]map[string]interface{}, 0, len(raw))

	for _, r := range raw {
		row := make(map[string]interface{}, len(r))
		for k, v := range r {
			key := strings.ToLower(strings.TrimSpace(k))
			if key == "" {
				continue
			}
			row[key] = v
			seen[key] = struct{}{}
		}
		rows = append(rows, row)
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: rows have no columns", ErrMalformedBatch)
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	return &Input{Shape: ShapeTabular, Batch: &Batch{Rows: rows, Columns: cols}}, nil
}

// =============================================================================
// Cell helpers
// =============================================================================

// isMissing treats nil, NaN and the usual null spellings as missing
func isMissing(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		switch strings.TrimSpace(x) {
		case "", "null", "NULL", "nil", "NaN", "nan", "None":
			return true
		}
		return false
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// toFloat coerces a cell to float64. Bools are rejected.
func toFloat(v interface{}) (float64, bool) {
	if isMissing(v) {
		return 0, false
	}
	switch x := v.(type) {
	case bool:
		return 0, false
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// compact YYYYMMDD dates (A-share daily bars) share the integer form with
// epoch seconds; values in this range are read as dates
const (
	compactDateMin = 19000101
	compactDateMax = 29991231
)

// toTime parses time values, compact YYYYMMDD dates, epoch seconds and
// epoch milliseconds
func toTime(v interface{}) (time.Time, bool) {
	if isMissing(v) {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	if f, ok := toFloat(v); ok {
		if math.IsInf(f, 0) || f <= 0 {
			return time.Time{}, false
		}
		if f >= compactDateMin && f <= compactDateMax {
			return compactDate(f)
		}
		if f > 1e12 {
			return time.UnixMilli(int64(f)).UTC(), true
		}
		return time.Unix(int64(f), 0).UTC(), true
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func compactDate(f float64) (time.Time, bool) {
	if f != math.Trunc(f) {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", strconv.FormatInt(int64(f), 10))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// =============================================================================
// Batch accessors
// =============================================================================

// Len returns the row count
func (b *Batch) Len() int {
	return len(b.Rows)
}

// Has reports whether any row carries the column
func (b *Batch) Has(col string) bool {
	i := sort.SearchStrings(b.Columns, col)
	return i < len(b.Columns) && b.Columns[i] == col
}

// first returns the first column of candidates present in the batch
func (b *Batch) first(candidates []string) (string, bool) {
	for _, c := range candidates {
		if b.Has(c) {
			return c, true
		}
	}
	return "", false
}

// Float returns the numeric value of a cell if present and numeric
func (b *Batch) Float(row int, col string) (float64, bool) {
	return toFloat(b.Rows[row][col])
}

// Present reports whether a cell exists and is not missing
func (b *Batch) Present(row int, col string) bool {
	v, ok := b.Rows[row][col]
	return ok && !isMissing(v)
}

// ColumnFloats returns numeric values of a column in row order, skipping gaps
func (b *Batch) ColumnFloats(col string) []float64 {
	out := make([]float64, 0, len(b.Rows))
	for i := range b.Rows {
		if f, ok := b.Float(i, col); ok {
			out = append(out, f)
		}
	}
	return out
}

// ColumnTimes returns parsed timestamps of a column in row order
func (b *Batch) ColumnTimes(col string) []time.Time {
	out := make([]time.Time, 0, len(b.Rows))
	for _, row := range b.Rows {
		if t, ok := toTime(row[col]); ok {
			out = append(out, t)
		}
	}
	return out
}

// NumericColumns lists columns whose every present value is numeric,
// excluding identifier and timestamp columns
func (b *Batch) NumericColumns() []string {
	if b.numeric != nil {
		return b.numeric
	}

	cols := make([]string, 0, len(b.Columns))
	for _, col := range b.Columns {
		if isIdentifierColumn(col) || isTimestampColumn(col) {
			continue
		}
		present, numeric := 0, true
		for i := range b.Rows {
			if !b.Present(i, col) {
				continue
			}
			present++
			if _, ok := b.Float(i, col); !ok {
				numeric = false
				break
			}
		}
		if numeric && present > 0 {
			cols = append(cols, col)
		}
	}
	b.numeric = cols
	return cols
}

func isIdentifierColumn(col string) bool {
	return strings.Contains(col, "symbol") || strings.Contains(col, "code")
}

func isTimestampColumn(col string) bool {
	for _, c := range timestampColumns {
		if col == c {
			return true
		}
	}
	return false
}

func isFlowColumn(col string) bool {
	for _, hint := range flowHints {
		if strings.Contains(col, hint) {
			return true
		}
	}
	return false
}

// ParseTime exposes the cell timestamp parser (time.Time, RFC3339 and
// other cast formats, YYYYMMDD, epoch seconds or milliseconds)
func ParseTime(v interface{}) (time.Time, bool) {
	return toTime(v)
}
