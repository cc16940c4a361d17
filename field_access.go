package ygggo_mockdb

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Typed column conversions shared by MockDataReader and SQLDataReader.
// Values are returned as stored when the type matches. Integers convert between
// sizes only when no information is lost. Text values (string or []byte, as
// returned by text-protocol drivers and YAML fixtures) are parsed;
// MockDataReader refuses text before converting. nil always fails.

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case decimal.Decimal, uuid.UUID, time.Time:
		return false
	}
	if vr, ok := v.(driver.Valuer); ok {
		inner, err := vr.Value()
		return err == nil && inner == nil
	}
	return false
}

// unwrapValuer resolves sql.Null* style wrappers. ok is false when v is not one.
func unwrapValuer(v any) (any, bool) {
	vr, ok := v.(driver.Valuer)
	if !ok {
		return nil, false
	}
	inner, err := vr.Value()
	if err != nil {
		return nil, false
	}
	return inner, true
}

func textOf(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	}
	return "", false
}

func castError(v any, target string) error {
	if v == nil {
		return invalidCast("cannot convert null to %s", target)
	}
	return invalidCast("cannot convert %T to %s", v, target)
}

func toString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", castError(nil, "string")
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	if inner, ok := unwrapValuer(v); ok {
		return toString(inner)
	}
	return fmt.Sprint(v), nil
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string, []byte:
		s, _ := textOf(t)
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return false, castError(v, "bool")
		}
		return b, nil
	}
	if n, err := toInt64(v); err == nil && (n == 0 || n == 1) {
		return n == 1, nil
	}
	if inner, ok := unwrapValuer(v); ok && inner != nil {
		return toBool(inner)
	}
	return false, castError(v, "bool")
}

func toInt64(v any) (int64, error) {
	if s, ok := textOf(v); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, castError(v, "int64")
		}
		return n, nil
	}
	if v == nil {
		return 0, castError(nil, "int64")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, castError(v, "int64")
		}
		return int64(u), nil
	}
	if inner, ok := unwrapValuer(v); ok && inner != nil {
		return toInt64(inner)
	}
	return 0, castError(v, "int64")
}

func toIntRange(v any, min, max int64, target string) (int64, error) {
	n, err := toInt64(v)
	if err != nil {
		return 0, castError(v, target)
	}
	if n < min || n > max {
		return 0, invalidCast("value %d overflows %s", n, target)
	}
	return n, nil
}

func toInt32(v any) (int32, error) {
	n, err := toIntRange(v, math.MinInt32, math.MaxInt32, "int32")
	return int32(n), err
}

func toInt16(v any) (int16, error) {
	n, err := toIntRange(v, math.MinInt16, math.MaxInt16, "int16")
	return int16(n), err
}

func toByte(v any) (byte, error) {
	n, err := toIntRange(v, 0, math.MaxUint8, "byte")
	return byte(n), err
}

func toChar(v any) (rune, error) {
	if s, ok := textOf(v); ok {
		if utf8.RuneCountInString(s) != 1 {
			return 0, castError(v, "char")
		}
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	}
	n, err := toIntRange(v, 0, utf8.MaxRune, "char")
	return rune(n), err
}

func toFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case decimal.Decimal:
		return t.InexactFloat64(), nil
	case string, []byte:
		s, _ := textOf(t)
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, castError(v, "float64")
		}
		return f, nil
	}
	if n, err := toInt64(v); err == nil {
		return float64(n), nil
	}
	if inner, ok := unwrapValuer(v); ok && inner != nil {
		return toFloat64(inner)
	}
	return 0, castError(v, "float64")
}

func toFloat32(v any) (float32, error) {
	if f, ok := v.(float32); ok {
		return f, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, castError(v, "float32")
	}
	return float32(f), nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string, []byte:
		s, _ := textOf(t)
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, castError(v, "time.Time")
	}
	if inner, ok := unwrapValuer(v); ok && inner != nil {
		return toTime(inner)
	}
	return time.Time{}, castError(v, "time.Time")
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case string, []byte:
		s, _ := textOf(t)
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return decimal.Decimal{}, castError(v, "decimal")
		}
		return d, nil
	}
	if n, err := toInt64(v); err == nil {
		return decimal.NewFromInt(n), nil
	}
	if inner, ok := unwrapValuer(v); ok && inner != nil {
		return toDecimal(inner)
	}
	return decimal.Decimal{}, castError(v, "decimal")
}

func toGUID(v any) (uuid.UUID, error) {
	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case [16]byte:
		return uuid.UUID(t), nil
	case []byte:
		if len(t) == 16 {
			return uuid.FromBytes(t)
		}
		u, err := uuid.ParseBytes(t)
		if err != nil {
			return uuid.Nil, castError(v, "uuid")
		}
		return u, nil
	case string:
		u, err := uuid.Parse(t)
		if err != nil {
			return uuid.Nil, castError(v, "uuid")
		}
		return u, nil
	}
	if inner, ok := unwrapValuer(v); ok && inner != nil {
		return toGUID(inner)
	}
	return uuid.Nil, castError(v, "uuid")
}

// typeName reports a short name for a column type.
func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if n := t.Name(); n != "" {
		return n
	}
	return t.String()
}
