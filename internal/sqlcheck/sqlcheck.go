// Package sqlcheck validates a single SQL statement against the narrow
// subset the gateway permits: one statement, a whitelisted operation kind,
// and only bare, non-system table references.
package sqlcheck

import (
	"sort"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"postgate/internal/domain"
)

// Result is the outcome of validating one statement.
type Result struct {
	// Operation is the classified statement kind.
	Operation domain.Operation

	// Tables are the bare relation names the statement references, sorted.
	Tables []string

	// ReturnsRows is true for SELECT and for DML carrying a RETURNING
	// clause. DDL and plain DML produce zero rows.
	ReturnsRows bool
}

// Rules extends operation filtering with optional table allow/deny lists.
// A nil Allowed means no allow-list filtering; Denied always applies.
type Rules struct {
	Operations domain.OperationSet
	Allowed    map[string]struct{}
	Denied     map[string]struct{}
}

// Validate parses sql and checks it against the token's permitted operations.
// An empty operation set denies everything: a token minted without
// permissions cannot run anything.
func Validate(sql string, allowed domain.OperationSet) (*Result, error) {
	return ValidateWithRules(sql, Rules{Operations: allowed})
}

// ValidateWithRules is Validate with table-level rules applied after the
// reference checks.
func ValidateWithRules(sql string, rules Rules) (*Result, error) {
	parsed, err := pg_query.Parse(sql)
	if err != nil {
		return nil, &SyntaxError{Err: err}
	}

	switch {
	case len(parsed.Stmts) == 0:
		return nil, ErrEmptyQuery
	case len(parsed.Stmts) > 1:
		return nil, ErrMultipleStatements
	}

	stmt := parsed.Stmts[0].Stmt

	op, err := classify(stmt)
	if err != nil {
		return nil, err
	}

	tables, err := collectTables(stmt, rules)
	if err != nil {
		return nil, err
	}

	if !rules.Operations.Contains(op) {
		return nil, &OperationNotAllowedError{Op: op}
	}

	return &Result{
		Operation:   op,
		Tables:      tables,
		ReturnsRows: returnsRows(stmt),
	}, nil
}

// classify maps the statement node onto one of the seven operations.
func classify(stmt *pg_query.Node) (domain.Operation, error) {
	switch stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return domain.OpSelect, nil
	case *pg_query.Node_InsertStmt:
		return domain.OpInsert, nil
	case *pg_query.Node_UpdateStmt:
		return domain.OpUpdate, nil
	case *pg_query.Node_DeleteStmt:
		return domain.OpDelete, nil
	case *pg_query.Node_CreateStmt, *pg_query.Node_IndexStmt, *pg_query.Node_ViewStmt:
		return domain.OpCreate, nil
	case *pg_query.Node_AlterTableStmt, *pg_query.Node_RenameStmt:
		return domain.OpAlter, nil
	case *pg_query.Node_DropStmt, *pg_query.Node_TruncateStmt:
		return domain.OpDrop, nil
	default:
		return "", ErrUnsupportedStatement
	}
}

// returnsRows reports whether executing the statement yields a result set.
func returnsRows(stmt *pg_query.Node) bool {
	switch n := stmt.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return true
	case *pg_query.Node_InsertStmt:
		return len(n.InsertStmt.ReturningList) > 0
	case *pg_query.Node_UpdateStmt:
		return len(n.UpdateStmt.ReturningList) > 0
	case *pg_query.Node_DeleteStmt:
		return len(n.DeleteStmt.ReturningList) > 0
	default:
		return false
	}
}

// tableRef is a relation reference projected to (schema?, name).
type tableRef struct {
	schema string
	name   string
}

// collectTables walks every relation reference, applies the qualification and
// system-table rules in order, and returns the accepted bare names sorted.
func collectTables(stmt *pg_query.Node, rules Rules) ([]string, error) {
	refs := relationRefs(stmt)

	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref.schema != "" {
			return nil, &QualifiedTableError{Full: ref.schema + "." + ref.name}
		}

		lower := strings.ToLower(ref.name)
		if strings.HasPrefix(lower, "pg_") || lower == "information_schema" {
			return nil, &SystemTableError{Name: ref.name}
		}

		if _, denied := rules.Denied[lower]; denied {
			return nil, &TableDeniedError{Name: ref.name}
		}
		if rules.Allowed != nil {
			if _, ok := rules.Allowed[lower]; !ok {
				return nil, &TableNotAllowedError{Name: ref.name}
			}
		}

		seen[ref.name] = struct{}{}
	}

	tables := make([]string, 0, len(seen))
	for name := range seen {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables, nil
}

// relationRefs gathers relation references from the statement: every RangeVar
// anywhere in the tree, plus DROP targets, which the grammar stores as plain
// name lists rather than RangeVars.
func relationRefs(stmt *pg_query.Node) []tableRef {
	var refs []tableRef

	walkRangeVars(stmt, func(rv *pg_query.RangeVar) {
		schema := rv.Schemaname
		if rv.Catalogname != "" {
			schema = rv.Catalogname + "." + schema
		}
		refs = append(refs, tableRef{schema: schema, name: rv.Relname})
	})

	if drop := stmt.GetDropStmt(); drop != nil {
		for _, obj := range drop.Objects {
			if ref, ok := dropObjectRef(obj); ok {
				refs = append(refs, ref)
			}
		}
	}

	return refs
}

// dropObjectRef projects a DROP target (a list of name parts, or a single
// name) into a tableRef.
func dropObjectRef(obj *pg_query.Node) (tableRef, bool) {
	var parts []string

	switch n := obj.Node.(type) {
	case *pg_query.Node_List:
		for _, item := range n.List.Items {
			if s := item.GetString_(); s != nil {
				parts = append(parts, s.Sval)
			}
		}
	case *pg_query.Node_String_:
		parts = append(parts, n.String_.Sval)
	}

	switch len(parts) {
	case 0:
		return tableRef{}, false
	case 1:
		return tableRef{name: parts[0]}, true
	default:
		return tableRef{
			schema: strings.Join(parts[:len(parts)-1], "."),
			name:   parts[len(parts)-1],
		}, true
	}
}
