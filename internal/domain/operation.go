// Package domain contains the core entities of the gateway.
// These types are shared by the validator, store, executor and HTTP layers.
package domain

import (
	"encoding/json"
	"strings"
)

// Operation classifies a SQL statement into one of the permission-bearing
// kinds. The string form is what is stored in postgate_tokens.allowed_operations.
type Operation string

const (
	OpSelect Operation = "SELECT"
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpCreate Operation = "CREATE"
	OpAlter  Operation = "ALTER"
	OpDrop   Operation = "DROP"
)

// String returns the canonical upper-case form.
func (o Operation) String() string {
	return string(o)
}

// IsValid checks if the operation is one of the seven known kinds.
func (o Operation) IsValid() bool {
	switch o {
	case OpSelect, OpInsert, OpUpdate, OpDelete, OpCreate, OpAlter, OpDrop:
		return true
	default:
		return false
	}
}

// IsDDL reports whether the operation changes schema objects rather than rows.
func (o Operation) IsDDL() bool {
	switch o {
	case OpCreate, OpAlter, OpDrop:
		return true
	default:
		return false
	}
}

// OperationSet is the set of operations a token may perform.
type OperationSet map[Operation]struct{}

// NewOperationSet builds a set from the given operations.
func NewOperationSet(ops ...Operation) OperationSet {
	s := make(OperationSet, len(ops))
	for _, op := range ops {
		s[op] = struct{}{}
	}
	return s
}

// ParseOperations converts the stored string form into a set.
// Unknown strings are dropped so that new permission kinds can be added to
// the metadata schema before every gateway instance understands them.
func ParseOperations(raw []string) OperationSet {
	s := make(OperationSet, len(raw))
	for _, r := range raw {
		op := Operation(strings.ToUpper(strings.TrimSpace(r)))
		if op.IsValid() {
			s[op] = struct{}{}
		}
	}
	return s
}

// Contains reports whether the set includes op.
func (s OperationSet) Contains(op Operation) bool {
	_, ok := s[op]
	return ok
}

// Strings returns the sorted-by-kind string form for storage.
func (s OperationSet) Strings() []string {
	// Fixed order keeps the stored array stable across runs.
	all := []Operation{OpSelect, OpInsert, OpUpdate, OpDelete, OpCreate, OpAlter, OpDrop}
	out := make([]string, 0, len(s))
	for _, op := range all {
		if s.Contains(op) {
			out = append(out, string(op))
		}
	}
	return out
}

// MarshalJSON renders the set as its ordered string array.
func (s OperationSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON parses a string array, dropping unknown entries.
func (s *OperationSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseOperations(raw)
	return nil
}

// DefaultOperations is the DML-only permission set minted when the operator
// does not specify one.
func DefaultOperations() OperationSet {
	return NewOperationSet(OpSelect, OpInsert, OpUpdate, OpDelete)
}

// TenantOperations is the full DML+DDL permission set for tenants that manage
// their own tables.
func TenantOperations() OperationSet {
	return NewOperationSet(OpSelect, OpInsert, OpUpdate, OpDelete, OpCreate, OpAlter, OpDrop)
}
