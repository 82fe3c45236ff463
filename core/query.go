package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Operator string

const (
	Equal          Operator = "="
	Greater        Operator = ">"
	Less           Operator = "<"
	GreaterOrEqual Operator = ">="
	LessOrEqual    Operator = "<="
)

func (o Operator) Valid() bool {
	switch o {
	case Equal, Greater, Less, GreaterOrEqual, LessOrEqual:
		return true
	}
	return false
}

// Condition is a single (column, operator, value) filter.
type Condition struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Where builds a condition. The value is normalized when the condition is
// evaluated, so any integer kind or string is accepted here.
func Where(column string, operator Operator, value any) *Condition {
	return &Condition{Column: column, Operator: operator, Value: value}
}

func (c Condition) String() string {
	switch v := c.Value.(type) {
	case string:
		return fmt.Sprintf("%s %s %s", c.Column, c.Operator, strconv.Quote(v))
	default:
		return fmt.Sprintf("%s %s %v", c.Column, c.Operator, v)
	}
}

// Normalized returns a copy of the condition with its value normalized and
// its operator validated.
func (c Condition) Normalized() (Condition, error) {
	if !c.Operator.Valid() {
		return Condition{}, errors.Wrapf(ErrUnknownOperator, "%q", c.Operator)
	}
	value, err := Normalize(c.Value)
	if err != nil {
		return Condition{}, errors.Wrapf(err, "condition on %s", c.Column)
	}
	return Condition{Column: c.Column, Operator: c.Operator, Value: value}, nil
}

// Matches reports whether value satisfies the condition. Both sides must
// already be normalized; values of different domains never match.
func (c Condition) Matches(value any) bool {
	cmp, ok := Compare(value, c.Value)
	if !ok {
		return false
	}

	switch c.Operator {
	case Equal:
		return cmp == 0
	case Greater:
		return cmp > 0
	case Less:
		return cmp < 0
	case GreaterOrEqual:
		return cmp >= 0
	case LessOrEqual:
		return cmp <= 0
	default:
		return false
	}
}

// UnmarshalJSON keeps integral values as int64 instead of float64.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column   string   `json:"column"`
		Operator Operator `json:"operator"`
		Value    any      `json:"value"`
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	c.Column = raw.Column
	c.Operator = raw.Operator
	c.Value = raw.Value
	if number, ok := raw.Value.(json.Number); ok {
		if i, err := number.Int64(); err == nil {
			c.Value = i
		} else if f, err := number.Float64(); err == nil {
			c.Value = f
		}
	}
	return nil
}

type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	OuterJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case OuterJoin:
		return "OUTER"
	default:
		return fmt.Sprintf("JoinType(%d)", int(j))
	}
}

func ParseJoinType(name string) (JoinType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INNER":
		return InnerJoin, nil
	case "LEFT":
		return LeftJoin, nil
	case "RIGHT":
		return RightJoin, nil
	case "OUTER", "FULL":
		return OuterJoin, nil
	default:
		return 0, errors.Wrapf(ErrUnknownJoinType, "%q", name)
	}
}
