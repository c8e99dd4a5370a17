package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/jdy-client/pkg/client"
)

// Output formats.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

// tableData is the table rendition of a command result.
type tableData struct {
	header []string
	rows   [][]string
}

// render writes v in the configured format. table is used for the table
// format; without one, table output falls back to JSON.
func (a *app) render(w io.Writer, v any, table *tableData) error {
	switch format := a.v.GetString(keyOutput); format {
	case formatJSON:
		return writeJSON(w, v)
	case formatYAML:
		return writeYAML(w, v)
	case formatTable:
		if table == nil {
			return writeJSON(w, v)
		}
		return writeTable(w, table)
	default:
		return fmt.Errorf("unknown output format %q (want json, yaml or table)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	// Round trip through JSON so json.Number and json.RawMessage render as
	// plain YAML values.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("convert output: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return err
	}
	return encoder.Close()
}

func writeTable(w io.Writer, data *tableData) error {
	table := tablewriter.NewWriter(w)
	header := make([]any, len(data.header))
	for i, h := range data.header {
		header[i] = h
	}
	table.Header(header...)
	for _, row := range data.rows {
		_ = table.Append(row)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func widgetsTable(widgets []client.Widget) *tableData {
	t := &tableData{header: []string{"Name", "Label", "Type"}}
	for _, w := range widgets {
		t.rows = append(t.rows, []string{w.Name(), w.Label(), w.Type()})
	}
	return t
}

// recordsTable renders one row per record: "_id" first, then every other
// field in name order.
func recordsTable(records []client.Record) *tableData {
	seen := map[string]bool{"_id": true}
	var fields []string
	for _, rec := range records {
		for name := range rec {
			if !seen[name] {
				seen[name] = true
				fields = append(fields, name)
			}
		}
	}
	sort.Strings(fields)

	t := &tableData{header: append([]string{"_id"}, fields...)}
	for _, rec := range records {
		row := []string{rec.ID()}
		for _, name := range fields {
			row = append(row, cell(rec[name]))
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func recordTable(rec client.Record) *tableData {
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &tableData{header: []string{"Field", "Value"}}
	for _, name := range names {
		t.rows = append(t.rows, []string{name, cell(rec[name])})
	}
	return t
}

// cell formats a field for a table. {"value": x} documents show x.
func cell(v any) string {
	if doc, ok := v.(map[string]any); ok && len(doc) == 1 {
		if inner, ok := doc["value"]; ok {
			v = inner
		}
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	}
}
