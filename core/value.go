package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Normalize maps the accepted Go value kinds onto the two value domains of
// the engine: int64 for integers and string for text.
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, errors.Wrapf(ErrValueType, "%d exceeds int64", v)
		}
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, errors.Wrapf(ErrValueType, "%d exceeds int64", v)
		}
		return int64(v), nil
	case string:
		return v, nil
	default:
		return nil, errors.Wrapf(ErrValueType, "unsupported value %v (%T)", value, value)
	}
}

// NormalizeFor normalizes value and checks it against the column type.
func NormalizeFor(column Column, value any) (any, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return nil, errors.Wrapf(err, "column %s", column.Name)
	}

	switch normalized.(type) {
	case int64:
		if column.Type != IntType {
			return nil, errors.Wrapf(ErrValueType, "column %s is %s, got integer", column.Name, column.Type)
		}
	case string:
		if column.Type != TextType {
			return nil, errors.Wrapf(ErrValueType, "column %s is %s, got text", column.Name, column.Type)
		}
	}

	return normalized, nil
}

// Key returns the index key of a normalized value. Integers and text never
// collide.
func Key(value any) string {
	switch v := value.(type) {
	case int64:
		return "i:" + strconv.FormatInt(v, 10)
	case string:
		return "s:" + v
	default:
		return ""
	}
}

// Compare orders two normalized values of the same domain. ok is false when
// the values are not comparable.
func Compare(a, b any) (cmp int, ok bool) {
	switch av := a.(type) {
	case int64:
		bv, isInt := b.(int64)
		if !isInt {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, isString := b.(string)
		if !isString {
			return 0, false
		}
		return strings.Compare(av, bv), true
	}
	return 0, false
}
