package ree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"electric_balance_backend/platform/apperr"
	"electric_balance_backend/platform/validator"
)

const msgInvalidStructure = "invalid upstream payload structure"

// Payload is the balance response of the statistics API. Only the parts the
// ingestion needs are kept.
type Payload struct {
	Included []Group
}

// Group is one energy type block, tagged with its type display name.
type Group struct {
	Type       string
	ID         string
	Attributes GroupAttributes
}

// GroupAttributes holds the subtype series of a group.
type GroupAttributes struct {
	Title       string
	Description *string
	Content     []Content
}

// Content is one subtype series, tagged with its subtype display name.
type Content struct {
	Type       string
	ID         string
	GroupID    string
	Attributes ContentAttributes
}

// ContentAttributes holds the daily values of a subtype series.
type ContentAttributes struct {
	Title       string
	Description *string
	Values      []Value
}

// Value is one daily observation. Numbers keep their JSON text.
type Value struct {
	Value      string
	Percentage string
	Datetime   string
}

// Row is one flattened candidate record. Tags are carried as received.
type Row struct {
	Type        string
	Subtype     string
	Value       string
	Percentage  string
	Description *string
	Datetime    string
}

// Decode parses a raw response body and checks its structure. Every
// deviation is collected into one report carried by a KindSchema error, and
// no payload is returned.
func Decode(val *validator.Validator, body []byte) (*Payload, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var doc interface{}
	if err := decoder.Decode(&doc); err != nil {
		return nil, apperr.Schema(msgInvalidStructure).WithDetails(decodeReport(err))
	}

	s := &shape{val: val}
	payload := s.payload(doc)
	if !s.report.Empty() {
		return nil, apperr.Schema(msgInvalidStructure).WithDetails(s.report.Entries())
	}
	return payload, nil
}

func decodeReport(err error) []validator.FieldError {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return []validator.FieldError{{
			Constraints: []string{fmt.Sprintf("malformed JSON at offset %d: %v", syntaxErr.Offset, err)},
		}}
	}
	return []validator.FieldError{{Constraints: []string{err.Error()}}}
}

// shape walks the decoded document, building the typed payload and
// recording every violation under its indexed path.
type shape struct {
	val    *validator.Validator
	report validator.Tree
}

func (s *shape) payload(doc interface{}) *Payload {
	root, ok := doc.(map[string]interface{})
	if !ok {
		s.report.Add(nil, kindOf(doc), "payload must be a JSON object")
		return nil
	}

	items := s.array(nil, root, "included")
	p := &Payload{Included: make([]Group, 0, len(items))}
	for i, item := range items {
		p.Included = append(p.Included, s.group(indexed(nil, "included", i), item))
	}
	return p
}

func (s *shape) group(path []string, raw interface{}) Group {
	obj, ok := s.element(path, raw)
	if !ok {
		return Group{}
	}

	g := Group{
		Type: s.text(path, obj, "type", "required,jsonstring"),
		ID:   s.text(path, obj, "id", "required,jsonstring"),
	}
	attrs, ok := s.object(path, obj, "attributes")
	if !ok {
		return g
	}

	at := join(path, "attributes")
	g.Attributes.Title = s.text(at, attrs, "title", "required,jsonstring")
	g.Attributes.Description = s.optionalText(at, attrs, "description")
	for i, item := range s.array(at, attrs, "content") {
		g.Attributes.Content = append(g.Attributes.Content, s.content(indexed(at, "content", i), item))
	}
	return g
}

func (s *shape) content(path []string, raw interface{}) Content {
	obj, ok := s.element(path, raw)
	if !ok {
		return Content{}
	}

	c := Content{
		Type:    s.text(path, obj, "type", "required,jsonstring"),
		ID:      s.text(path, obj, "id", "required,jsonstring"),
		GroupID: s.text(path, obj, "groupId", "required,jsonstring"),
	}
	attrs, ok := s.object(path, obj, "attributes")
	if !ok {
		return c
	}

	at := join(path, "attributes")
	c.Attributes.Title = s.text(at, attrs, "title", "required,jsonstring")
	c.Attributes.Description = s.optionalText(at, attrs, "description")
	for i, item := range s.array(at, attrs, "values") {
		c.Attributes.Values = append(c.Attributes.Values, s.value(indexed(at, "values", i), item))
	}
	return c
}

func (s *shape) value(path []string, raw interface{}) Value {
	obj, ok := s.element(path, raw)
	if !ok {
		return Value{}
	}
	return Value{
		Value:      s.text(path, obj, "value", "required,jsonnumber"),
		Percentage: s.text(path, obj, "percentage", "required,jsonnumber"),
		Datetime:   s.text(path, obj, "datetime", "required,iso8601"),
	}
}

// check runs tag on obj[key] and records any failure. It reports whether
// the value passed.
func (s *shape) check(path []string, obj map[string]interface{}, key, tag string) bool {
	raw := obj[key]
	if msgs := s.val.Check(key, raw, tag); len(msgs) > 0 {
		s.report.Add(join(path, key), kindOf(raw), msgs...)
		return false
	}
	return true
}

func (s *shape) text(path []string, obj map[string]interface{}, key, tag string) string {
	if !s.check(path, obj, key, tag) {
		return ""
	}
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func (s *shape) optionalText(path []string, obj map[string]interface{}, key string) *string {
	if !s.check(path, obj, key, "omitempty,jsonstring") {
		return nil
	}
	if v, ok := obj[key].(string); ok {
		return &v
	}
	return nil
}

func (s *shape) object(path []string, obj map[string]interface{}, key string) (map[string]interface{}, bool) {
	if !s.check(path, obj, key, "required,jsonobject") {
		return nil, false
	}
	return obj[key].(map[string]interface{}), true
}

func (s *shape) array(path []string, obj map[string]interface{}, key string) []interface{} {
	if !s.check(path, obj, key, "required,jsonarray") {
		return nil
	}
	return obj[key].([]interface{})
}

// element accepts an array item that must be an object.
func (s *shape) element(path []string, raw interface{}) (map[string]interface{}, bool) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		s.report.Add(path, kindOf(raw), "entry must be an object")
	}
	return obj, ok
}

func join(path []string, key string) []string {
	return append(path[:len(path):len(path)], key)
}

func indexed(path []string, key string, i int) []string {
	return join(path, fmt.Sprintf("%s[%d]", key, i))
}

// kindOf is the reported value: scalars as decoded, containers by JSON kind.
func kindOf(raw interface{}) interface{} {
	switch raw.(type) {
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	}
	return raw
}

// Flatten unrolls groups, contents and values into one row per value entry.
// The content description is copied onto every row of its series.
func (p *Payload) Flatten() []Row {
	rows := make([]Row, 0)
	for _, group := range p.Included {
		for _, content := range group.Attributes.Content {
			for _, v := range content.Attributes.Values {
				rows = append(rows, Row{
					Type:        group.Type,
					Subtype:     content.Type,
					Value:       v.Value,
					Percentage:  v.Percentage,
					Description: content.Attributes.Description,
					Datetime:    v.Datetime,
				})
			}
		}
	}
	return rows
}
