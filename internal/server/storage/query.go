package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Builders for the generic verbs. Column order is sorted so the generated
// SQL is deterministic and testable.

func buildUpsert(c Collection, row map[string]any, conflictKeys []string) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("empty row")
	}

	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		col, _ := c.column(name)
		v, err := bindValue(col, row[name])
		if err != nil {
			return "", nil, err
		}
		args[i] = v
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		c.Name, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	if len(conflictKeys) > 0 {
		updates := make([]string, 0, len(names))
		for _, name := range names {
			if contains(conflictKeys, name) {
				continue
			}
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", name, name))
		}
		if len(updates) == 0 {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(conflictKeys, ", "))
		} else {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s",
				strings.Join(conflictKeys, ", "), strings.Join(updates, ", "))
		}
	}

	return b.String(), args, nil
}

func buildSelect(c Collection, q Query) (string, []any, error) {
	cols := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = col.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), c.Name)

	where, args, err := buildWhere(c, q.Filters, 1)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(where)

	if q.Order != "" {
		column, direction, ok := parseOrder(c, q.Order)
		if !ok {
			return "", nil, fmt.Errorf("bad order %q", q.Order)
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", column, direction)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	return b.String(), args, nil
}

func buildDelete(c Collection, filters map[string]any) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("refusing unfiltered delete on %s", c.Name)
	}
	where, args, err := buildWhere(c, filters, 1)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + c.Name + where, args, nil
}

// buildWhere renders equality filters; slice values become IN lists.
func buildWhere(c Collection, filters map[string]any, firstArg int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	var clauses []string
	var args []any
	n := firstArg
	for _, name := range names {
		col, _ := c.column(name)
		switch v := filters[name].(type) {
		case []any:
			if len(v) == 0 {
				clauses = append(clauses, "FALSE")
				continue
			}
			ph := make([]string, len(v))
			for i, item := range v {
				ph[i] = fmt.Sprintf("$%d", n)
				n++
				args = append(args, item)
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", name, strings.Join(ph, ", ")))
		default:
			bound, err := bindValue(col, v)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", name, n))
			n++
			args = append(args, bound)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// parseOrder accepts "column" or "column desc" against known columns.
func parseOrder(c Collection, order string) (column, direction string, ok bool) {
	fields := strings.Fields(strings.ToLower(order))
	if len(fields) == 0 || len(fields) > 2 {
		return "", "", false
	}
	if _, known := c.column(fields[0]); !known {
		return "", "", false
	}
	direction = "ASC"
	if len(fields) == 2 {
		switch fields[1] {
		case "asc":
		case "desc":
			direction = "DESC"
		default:
			return "", "", false
		}
	}
	return fields[0], direction, true
}

// bindValue converts a decoded JSON value into a driver argument. Composite
// values are re-encoded as JSON for JSONB columns; empty strings on nullable
// columns become NULL.
func bindValue(col Column, v any) (any, error) {
	switch value := v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return data, nil
	case string:
		if value == "" && col.Nullable {
			return nil, nil
		}
		return value, nil
	default:
		return value, nil
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
