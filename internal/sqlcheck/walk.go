package sqlcheck

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// walkRangeVars visits every RangeVar in the parse tree in document order.
// The tree is protobuf, so a reflective descent covers every statement shape
// (FROM items, joins, subqueries, CTE bodies, DML targets, DDL relations)
// without enumerating them.
func walkRangeVars(stmt *pg_query.Node, visit func(*pg_query.RangeVar)) {
	if stmt == nil {
		return
	}
	walkMessage(stmt.ProtoReflect(), visit)
}

func walkMessage(m protoreflect.Message, visit func(*pg_query.RangeVar)) {
	if rv, ok := m.Interface().(*pg_query.RangeVar); ok {
		visit(rv)
		// A RangeVar holds no nested relations, only its alias.
		return
	}

	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		switch {
		case fd.IsList() && fd.Kind() == protoreflect.MessageKind:
			list := v.List()
			for i := 0; i < list.Len(); i++ {
				walkMessage(list.Get(i).Message(), visit)
			}
		case fd.IsMap():
			// The parse tree has no map fields.
		case fd.Kind() == protoreflect.MessageKind:
			walkMessage(v.Message(), visit)
		}
		return true
	})
}
