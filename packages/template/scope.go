package template

import (
	"fmt"
	"os"
	"strings"
)

// Provider is one layer of the variable scope.
type Provider interface {
	Lookup(name string) (string, bool)
	Label() string
}

// Scope is an ordered list of providers consulted highest-priority first:
// explicit overrides, then response captures, then the saved environment,
// then process defaults.
type Scope struct {
	layers []Provider
}

// NewScope builds a scope from providers listed highest-priority first.
func NewScope(layers ...Provider) *Scope {
	return &Scope{layers: layers}
}

// Push inserts a provider at the highest priority.
func (s *Scope) Push(p Provider) {
	s.layers = append([]Provider{p}, s.layers...)
}

// Append adds a provider at the lowest priority.
func (s *Scope) Append(p Provider) {
	s.layers = append(s.layers, p)
}

// Lookup resolves a name against the layers in priority order.
func (s *Scope) Lookup(name string) (string, bool) {
	for _, layer := range s.layers {
		if value, ok := layer.Lookup(name); ok {
			return value, true
		}
	}
	return "", false
}

// ResolutionError names the first placeholder that no layer could resolve.
type ResolutionError struct {
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved template variable: %q", e.Name)
}

// Resolve substitutes every placeholder in input. Substitution is verbatim:
// resolved values are never re-scanned for further placeholders.
func (s *Scope) Resolve(input string) (string, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}

	spans, err := Lex(input)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, span := range spans {
		if span.Kind == SpanLiteral {
			b.WriteString(span.Text)
			continue
		}
		value, ok := s.Lookup(span.Text)
		if !ok {
			return "", &ResolutionError{Name: span.Text}
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

// MapLayer is a flat name -> value provider.
type MapLayer struct {
	label  string
	values map[string]string
}

func NewMapLayer(label string, values map[string]string) *MapLayer {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapLayer{label: label, values: copied}
}

func (l *MapLayer) Lookup(name string) (string, bool) {
	value, ok := l.values[name]
	return value, ok
}

func (l *MapLayer) Label() string { return l.label }

// Set adds or replaces a value in the layer.
func (l *MapLayer) Set(name, value string) {
	l.values[name] = value
}

// EnvLayer resolves names from process environment variables. It is the
// lowest-priority default layer.
type EnvLayer struct{}

func (EnvLayer) Lookup(name string) (string, bool) {
	if value, ok := os.LookupEnv(name); ok {
		return value, true
	}
	return os.LookupEnv(strings.ToUpper(name))
}

func (EnvLayer) Label() string { return "env" }
