package models

import "errors"

var (
	ErrInvalidColumnID     = errors.New("invalid column ID")
	ErrInvalidColumnName   = errors.New("invalid column name")
	ErrInvalidColumnType   = errors.New("invalid column type")
	ErrInvalidColumnFormat = errors.New("invalid column format")
	ErrEmptyExpression     = errors.New("column expression cannot be empty")
	ErrInvalidFilterID     = errors.New("invalid filter ID")
	ErrInvalidFilterName   = errors.New("invalid filter name")
	ErrNilRule             = errors.New("filter rule cannot be nil")
	ErrInvalidRule         = errors.New("filter rule must be a structured object")
	ErrColumnNotFound      = errors.New("column not found")
	ErrFilterNotFound      = errors.New("filter not found")
	ErrDuplicateID         = errors.New("duplicate definition ID")
	ErrDependencyConflict  = errors.New("column is referenced by another enabled column")
)
