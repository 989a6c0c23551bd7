package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// defaultColumns are the fields shown per kind unless --wide is given.
var defaultColumns = map[string][]string{
	"actors":           {"actor_id", "class_name", "state", "node_id", "pid"},
	"jobs":             {"job_id", "status", "entrypoint", "start_time", "end_time"},
	"nodes":            {"node_id", "node_ip", "state", "hostname"},
	"placement_groups": {"placement_group_id", "name", "state"},
	"workers":          {"worker_id", "worker_type", "node_id", "pid"},
	"tasks":            {"task_id", "name", "state", "node_id"},
	"objects":          {"object_id", "reference_type", "object_size", "node_id"},
	"runtime_envs":     {"node_id", "runtime_env", "ref_cnt"},
}

// decodeRows turns a list result, either a map keyed by id or a list,
// into ordered rows.
func decodeRows(raw json.RawMessage) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		ids := make([]string, 0, len(t))
		for id := range t {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		rows := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			if row, ok := t[id].(map[string]any); ok {
				rows = append(rows, row)
			}
		}
		return rows, nil
	case []any:
		rows := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if row, ok := item.(map[string]any); ok {
				rows = append(rows, row)
			}
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unexpected result type %T", v)
}

// columnsFor picks the columns to show. Default columns missing from
// every row are dropped; wide mode shows every field.
func columnsFor(kind string, rows []map[string]any, wide bool) []string {
	present := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			present[k] = true
		}
	}

	var cols []string
	if !wide {
		for _, c := range defaultColumns[kind] {
			if present[c] {
				cols = append(cols, c)
			}
		}
		if len(cols) > 0 {
			return cols
		}
	}

	first := defaultColumns[kind]
	seen := map[string]bool{}
	for _, c := range first {
		if present[c] {
			cols = append(cols, c)
			seen[c] = true
		}
	}
	var rest []string
	for k := range present {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return t
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// renderTable renders rows as a bordered table.
func renderTable(cols []string, rows []map[string]any) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(cols...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = cell(r[c])
		}
		t.Row(line...)
	}
	return t.String()
}
