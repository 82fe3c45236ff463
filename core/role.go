package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Operation is a permission-checked operation kind.
type Operation int

const (
	SelectOperation Operation = iota
	InsertOperation
	UpdateOperation
	DeleteOperation
)

func (o Operation) String() string {
	switch o {
	case SelectOperation:
		return "select"
	case InsertOperation:
		return "insert"
	case UpdateOperation:
		return "update"
	case DeleteOperation:
		return "delete"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

type Role int

const (
	RoleAdmin Role = iota
	RoleEditor
	RoleReader
)

var AllRoles = []Role{RoleAdmin, RoleEditor, RoleReader}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleEditor:
		return "editor"
	case RoleReader:
		return "reader"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Allows reports whether the role's fixed capability set contains op.
func (r Role) Allows(op Operation) bool {
	switch r {
	case RoleAdmin:
		switch op {
		case SelectOperation, InsertOperation, UpdateOperation, DeleteOperation:
			return true
		}
	case RoleEditor:
		switch op {
		case SelectOperation, InsertOperation, UpdateOperation:
			return true
		}
	case RoleReader:
		return op == SelectOperation
	}
	return false
}

func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin":
		return RoleAdmin, nil
	case "editor":
		return RoleEditor, nil
	case "reader":
		return RoleReader, nil
	default:
		return 0, errors.Wrapf(ErrUnknownRole, "%q", name)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	switch r {
	case RoleAdmin, RoleEditor, RoleReader:
		return []byte(r.String()), nil
	}
	return nil, errors.Wrapf(ErrUnknownRole, "%d", int(r))
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
