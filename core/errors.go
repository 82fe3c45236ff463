package core

import "errors"

var (
	ErrTableNotFound          = errors.New("table not found")
	ErrTableAlreadyExists     = errors.New("table already exists")
	ErrColumnNotFound         = errors.New("column not found")
	ErrArityMismatch          = errors.New("value count does not match column count")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrEmptyAggregationTarget = errors.New("aggregation over empty table")
	ErrInvalidSchema          = errors.New("invalid table schema")
	ErrValueType              = errors.New("value does not match column type")
	ErrColumnNotNumeric       = errors.New("column is not numeric")
	ErrMissingCondition       = errors.New("condition is required")
	ErrUnknownOperator        = errors.New("unknown condition operator")
	ErrUnknownRole            = errors.New("unknown role")
	ErrUnknownJoinType        = errors.New("unknown join type")
)
