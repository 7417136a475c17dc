package validator

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is one node of a validation report. Leaves carry the rejected
// value and its constraint messages; inner nodes group their children by path.
type FieldError struct {
	Property    string       `json:"property"`
	Value       interface{}  `json:"value,omitempty"`
	Constraints []string     `json:"constraints,omitempty"`
	Children    []FieldError `json:"children,omitempty"`
}

// Report converts the error returned by Struct into a tree of FieldError
// nodes keyed by JSON property path. Errors that are not validation errors
// are reported as a single root entry.
func (val *Validator) Report(err error) []FieldError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Property: "", Constraints: []string{err.Error()}}}
	}

	var tree Tree
	for _, fe := range verrs {
		tree.Add(splitNamespace(fe.Namespace()), fe.Value(), val.Message(fe))
	}
	return tree.Entries()
}

// Check validates a single value against tag and returns the constraint
// messages, labelled as if the value were the field key.
func (val *Validator) Check(key string, value interface{}, tag string) []string {
	err := val.v.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, val.Message(keyedError{FieldError: fe, key: key}))
	}
	return messages
}

// keyedError names a Var failure after the key it was checked under.
type keyedError struct {
	validator.FieldError
	key string
}

func (e keyedError) Field() string { return e.key }

// Tree collects report entries by property path. Segments are joined the
// way Report joins namespaces, so "items[0]" followed by "name" is reported
// as "items[0].name" under the "items[0]" node.
type Tree struct {
	root reportNode
}

// Add records constraints on the node at segments. An empty path is the
// document root.
func (t *Tree) Add(segments []string, value interface{}, constraints ...string) {
	if len(segments) == 0 {
		segments = []string{""}
	}
	leaf := t.root.descend(segments)
	leaf.err.Value = value
	leaf.err.Constraints = append(leaf.err.Constraints, constraints...)
}

// Empty reports whether nothing was added.
func (t *Tree) Empty() bool {
	return len(t.root.children) == 0
}

// Entries returns the collected report.
func (t *Tree) Entries() []FieldError {
	return t.root.collect()
}

// Nest places a report under a parent property, prefixing every child path.
func Nest(property string, value interface{}, children []FieldError) FieldError {
	return FieldError{
		Property: property,
		Value:    value,
		Children: prefixed(property, children),
	}
}

func prefixed(prefix string, errs []FieldError) []FieldError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]FieldError, len(errs))
	for i, fe := range errs {
		fe.Property = joinPath(prefix, fe.Property)
		fe.Children = prefixed(prefix, fe.Children)
		out[i] = fe
	}
	return out
}

func joinPath(prefix, property string) string {
	switch {
	case prefix == "":
		return property
	case property == "":
		return prefix
	case strings.HasPrefix(property, "["):
		return prefix + property
	default:
		return prefix + "." + property
	}
}

// splitNamespace drops the root struct name and splits the remaining path.
func splitNamespace(ns string) []string {
	if idx := strings.IndexByte(ns, '.'); idx >= 0 {
		ns = ns[idx+1:]
	} else {
		return []string{ns}
	}
	return strings.Split(ns, ".")
}

type reportNode struct {
	err      FieldError
	children []*reportNode
	index    map[string]*reportNode
}

func (n *reportNode) descend(segments []string) *reportNode {
	current := n
	path := ""
	for _, segment := range segments {
		path = joinPath(path, segment)
		if current.index == nil {
			current.index = make(map[string]*reportNode)
		}
		next, ok := current.index[segment]
		if !ok {
			next = &reportNode{err: FieldError{Property: path}}
			current.index[segment] = next
			current.children = append(current.children, next)
		}
		current = next
	}
	return current
}

func (n *reportNode) collect() []FieldError {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]FieldError, 0, len(n.children))
	for _, child := range n.children {
		fe := child.err
		fe.Children = child.collect()
		out = append(out, fe)
	}
	return out
}
