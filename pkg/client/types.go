package client

// Record is one row of an entry: field widget names mapped to
// {"value": ...} documents, plus system fields such as "_id".
// Numbers are decoded as json.Number.
type Record map[string]any

// ID returns the record's "_id", or "" if it has none.
func (r Record) ID() string {
	id, _ := r["_id"].(string)
	return id
}

// Value wraps v in the {"value": v} document the service expects for a field.
func Value(v any) map[string]any {
	return map[string]any{"value": v}
}

// Widget describes one field of an entry.
type Widget map[string]any

// Name returns the widget identifier (for example "_widget_1528252846720").
func (w Widget) Name() string {
	s, _ := w["name"].(string)
	return s
}

// Label returns the field's display label.
func (w Widget) Label() string {
	s, _ := w["label"].(string)
	return s
}

// Type returns the widget type (text, number, address, subform, ...).
func (w Widget) Type() string {
	s, _ := w["type"].(string)
	return s
}

// Filter relations.
const (
	RelAnd = "and"
	RelOr  = "or"
)

// Filter restricts the records returned by a data query.
type Filter struct {
	Rel  string      `json:"rel"`
	Cond []Condition `json:"cond"`
}

// Condition is a single filter clause.
type Condition struct {
	Field  string `json:"field"`
	Type   string `json:"type,omitempty"`
	Method string `json:"method"`
	Value  []any  `json:"value,omitempty"`
}
