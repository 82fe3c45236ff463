package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/pkg/errors"
)

type Action string

const (
	ActionCreateTable  Action = "create_table"
	ActionInsert       Action = "insert"
	ActionSelect       Action = "select"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionAggregateSum Action = "aggregate_sum"
	ActionJoin         Action = "join"
	ActionBegin        Action = "begin"
	ActionCommit       Action = "commit"
	ActionRollback     Action = "rollback"
)

var AllActions = []Action{
	ActionCreateTable,
	ActionInsert,
	ActionSelect,
	ActionUpdate,
	ActionDelete,
	ActionAggregateSum,
	ActionJoin,
	ActionBegin,
	ActionCommit,
	ActionRollback,
}

var ErrUnknownAction = errors.New("unknown audit action")

// ParseAction returns the action named s.
func ParseAction(s string) (Action, error) {
	for _, action := range AllActions {
		if string(action) == s {
			return action, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownAction, "%q", s)
}

// Record is one audit entry. Payload data is kept only as its BLAKE2b-256
// digest.
type Record struct {
	ID          uuid.UUID       `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Action      Action          `json:"action"`
	Tables      []string        `json:"tables,omitempty"`
	DataHash    string          `json:"data_hash,omitempty"`
	Condition   *core.Condition `json:"condition,omitempty"`
	Role        core.Role       `json:"role"`
	Transaction string          `json:"-"`
}

// Filter narrows View results. Zero fields match everything.
type Filter struct {
	Action Action
	Table  string
	Role   *core.Role
	Since  *time.Time
	Limit  int
}

func (f Filter) matches(record Record) bool {
	if f.Action != "" && record.Action != f.Action {
		return false
	}
	if f.Role != nil && record.Role != *f.Role {
		return false
	}
	if f.Since != nil && record.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Table != "" {
		for _, table := range record.Tables {
			if table == f.Table {
				return true
			}
		}
		return false
	}
	return true
}
