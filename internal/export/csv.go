package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrColumnMismatch is returned by CheckColumns when a record's keys differ
// from the header defined by the first record.
var ErrColumnMismatch = errors.New("record columns do not match header")

const (
	fieldSeparator = ","
	rowSeparator   = "\n"
)

// ConvertToCSV serializes records into CSV text. The header row is the first
// record's keys; rows are joined by "\n" with no trailing newline. An empty
// input yields an empty string.
func ConvertToCSV(records []Record) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	enc := NewEncoder(&b)
	for _, r := range records {
		// strings.Builder never returns a write error.
		_ = enc.Encode(r)
	}
	return b.String()
}

// CheckColumns reports the first record whose key set differs from the
// header defined by records[0]. ConvertToCSV aligns such records by column
// name, so this is a diagnostic rather than a precondition.
func CheckColumns(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	header := make(map[string]struct{}, len(records[0]))
	for _, k := range records[0].Keys() {
		header[k] = struct{}{}
	}

	for i, r := range records[1:] {
		missing := make(map[string]struct{}, len(header))
		for k := range header {
			missing[k] = struct{}{}
		}
		for _, k := range r.Keys() {
			if _, ok := header[k]; !ok {
				return fmt.Errorf("CheckColumns: record %d: unexpected column %q: %w", i+1, k, ErrColumnMismatch)
			}
			if _, ok := missing[k]; !ok {
				return fmt.Errorf("CheckColumns: record %d: duplicate column %q: %w", i+1, k, ErrColumnMismatch)
			}
			delete(missing, k)
		}
		if len(missing) > 0 {
			return fmt.Errorf("CheckColumns: record %d: has %d of %d columns: %w", i+1, len(header)-len(missing), len(header), ErrColumnMismatch)
		}
	}

	return nil
}

// Encoder writes records as CSV to an underlying writer, producing exactly
// the bytes ConvertToCSV would return for the same sequence.
type Encoder struct {
	w             io.Writer
	header        []string
	headerWritten bool
	err           error
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Header returns the columns fixed by the first encoded record, or nil
// before anything was encoded.
func (e *Encoder) Header() []string {
	return e.header
}

// Encode writes one record. The first call also writes the header row.
// After a write error every later call returns the same error.
func (e *Encoder) Encode(r Record) error {
	if e.err != nil {
		return e.err
	}

	var b strings.Builder
	if !e.headerWritten {
		e.header = r.Keys()
		e.headerWritten = true
		for i, name := range e.header {
			if i > 0 {
				b.WriteString(fieldSeparator)
			}
			b.WriteString(EscapeField(name))
		}
	}

	b.WriteString(rowSeparator)
	for i, name := range e.header {
		if i > 0 {
			b.WriteString(fieldSeparator)
		}
		b.WriteString(renderField(r.valueAt(i, name)))
	}

	if _, err := io.WriteString(e.w, b.String()); err != nil {
		e.err = fmt.Errorf("Encode: write row: %w", err)
	}
	return e.err
}

// EscapeField quotes s when it contains a comma, a double quote or a line
// break, doubling every embedded double quote. Other strings are returned
// unchanged.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func renderField(v interface{}) string {
	s, isNull := FormatValue(v)
	if isNull {
		return ""
	}
	return EscapeField(s)
}

// FormatValue returns the natural string form of a record value. isNull is
// true for nil values, including typed nil pointers.
func FormatValue(v interface{}) (s string, isNull bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, false
	case bool:
		return strconv.FormatBool(x), false
	case int:
		return strconv.Itoa(x), false
	case int8:
		return strconv.FormatInt(int64(x), 10), false
	case int16:
		return strconv.FormatInt(int64(x), 10), false
	case int32:
		return strconv.FormatInt(int64(x), 10), false
	case int64:
		return strconv.FormatInt(x, 10), false
	case uint:
		return strconv.FormatUint(uint64(x), 10), false
	case uint8:
		return strconv.FormatUint(uint64(x), 10), false
	case uint16:
		return strconv.FormatUint(uint64(x), 10), false
	case uint32:
		return strconv.FormatUint(uint64(x), 10), false
	case uint64:
		return strconv.FormatUint(x, 10), false
	case float32:
		return formatFloat(float64(x), 32), false
	case float64:
		return formatFloat(x, 64), false
	case decimal.Decimal:
		return x.String(), false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "", true
		}
		return FormatValue(rv.Elem().Interface())
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), false
	}
	return fmt.Sprint(v), false
}

// formatFloat renders the shortest decimal that round-trips, so 100 is "100"
// and 0.1 is "0.1". Magnitudes below 1e-6 or from 1e21 up use exponent
// form, e.g. "1e-7" and "1.5e+21".
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, bitSize), "e")
		return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	if bitSize == 32 {
		return decimal.NewFromFloat32(float32(f)).String()
	}
	return decimal.NewFromFloat(f).String()
}
