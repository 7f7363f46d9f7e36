package sink

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/industrial-scheduler/internal/persistence"
)

// Kind tags the runtime type of a Value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is the typed form of a target value. Raw always carries the
// original text so auto-typed sinks can re-probe at write time.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Text  string
	Raw   string
}

// Parse coerces the textual target value according to the series data type.
// The auto type probes bool, then int, then float, and falls back to text.
func Parse(dataType persistence.DataType, text string) (Value, error) {
	trimmed := strings.TrimSpace(text)
	value := Value{Raw: text, Text: trimmed}

	switch dataType {
	case persistence.DataTypeInt:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("sink: %q is not an integer: %w", text, err)
		}
		value.Kind = KindInt
		value.Int = n
	case persistence.DataTypeFloat:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return Value{}, fmt.Errorf("sink: %q is not a float: %w", text, err)
		}
		value.Kind = KindFloat
		value.Float = f
	case persistence.DataTypeBool:
		b, ok := probeBool(trimmed)
		if !ok {
			return Value{}, fmt.Errorf("sink: %q is not a bool", text)
		}
		value.Kind = KindBool
		value.Bool = b
	case persistence.DataTypeString:
		value.Kind = KindString
	default: // auto
		if b, ok := probeBool(trimmed); ok {
			value.Kind = KindBool
			value.Bool = b
			break
		}
		if !strings.Contains(trimmed, ".") {
			if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
				value.Kind = KindInt
				value.Int = n
				break
			}
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			value.Kind = KindFloat
			value.Float = f
			break
		}
		value.Kind = KindString
	}
	return value, nil
}

// probeBool recognises the textual bool spellings the wire protocol accepts.
func probeBool(text string) (bool, bool) {
	switch strings.ToLower(text) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// String renders the typed value for logs.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}
