package pgstore

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/crestline/tenantcore/internal/tenantdb"
)

// identPattern matches the unquoted lowercase identifiers the schema uses.
// Everything else is rejected outright; identifiers are never escaped into
// place from caller input.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func quoteIdent(name string) (string, error) {
	if len(name) > 63 || !identPattern.MatchString(name) {
		return "", fmt.Errorf("pgstore: invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

func buildSelect(q tenantdb.Query) (string, []any, error) {
	table, err := quoteIdent(q.Table)
	if err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			if quoted[i], err = quoteIdent(c); err != nil {
				return "", nil, err
			}
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", cols, table)

	args, err := writeWhere(&sb, q.Where, nil)
	if err != nil {
		return "", nil, err
	}

	if len(q.OrderBy) > 0 {
		terms := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			col, err := quoteIdent(o.Col)
			if err != nil {
				return "", nil, err
			}
			if o.Desc {
				col += " DESC"
			}
			terms[i] = col
		}
		sb.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), args, nil
}

func buildInsert(table string, row tenantdb.Row) (string, []any, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, fmt.Errorf("pgstore: insert into %s with no columns", table)
	}

	cols := slices.Sorted(maps.Keys(row))
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		if quoted[i], err = quoteIdent(c); err != nil {
			return "", nil, err
		}
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		t, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	return sql, args, nil
}

func buildUpdate(table string, set tenantdb.Row, where []tenantdb.Cond) (string, []any, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	if len(set) == 0 {
		return "", nil, fmt.Errorf("pgstore: update of %s with no columns", table)
	}

	var sb strings.Builder
	var args []any
	fmt.Fprintf(&sb, "UPDATE %s SET ", t)
	for i, c := range slices.Sorted(maps.Keys(set)) {
		col, err := quoteIdent(c)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		args = append(args, set[c])
		fmt.Fprintf(&sb, "%s = $%d", col, len(args))
	}

	args, err = writeWhere(&sb, where, args)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

func buildDelete(table string, where []tenantdb.Cond) (string, []any, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", t)
	args, err := writeWhere(&sb, where, nil)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

func writeWhere(sb *strings.Builder, conds []tenantdb.Cond, args []any) ([]any, error) {
	if len(conds) == 0 {
		return args, nil
	}
	sb.WriteString(" WHERE ")
	for i, c := range conds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		var err error
		if args, err = writeCond(sb, c, args); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func writeCond(sb *strings.Builder, c tenantdb.Cond, args []any) ([]any, error) {
	col, err := quoteIdent(c.Col)
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case tenantdb.OpIsNull:
		sb.WriteString(col + " IS NULL")
	case tenantdb.OpNotNull:
		sb.WriteString(col + " IS NOT NULL")
	case tenantdb.OpIn:
		vals, ok := c.Val.([]any)
		if !ok {
			return nil, fmt.Errorf("pgstore: IN condition on %s requires a value list", c.Col)
		}
		if len(vals) == 0 {
			// An empty list matches nothing.
			sb.WriteString("false")
			return args, nil
		}
		placeholders := make([]string, len(vals))
		for i, v := range vals {
			args = append(args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		sb.WriteString(col + " IN (" + strings.Join(placeholders, ", ") + ")")
	case tenantdb.OpEq, tenantdb.OpNeq, tenantdb.OpGt, tenantdb.OpGte, tenantdb.OpLt, tenantdb.OpLte:
		args = append(args, c.Val)
		fmt.Fprintf(sb, "%s %s $%d", col, string(c.Op), len(args))
	default:
		return nil, fmt.Errorf("pgstore: unsupported operator %q", c.Op)
	}
	return args, nil
}
