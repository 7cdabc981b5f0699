// Package capture stores response bodies from executed requests and exposes
// them as a template scope layer, so {{name.field}} in a later request
// resolves against the JSON body captured under "name".
package capture

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Layer holds captured response bodies keyed by the name given at capture
// time. Field access is lazy: paths are evaluated at lookup, not at store.
type Layer struct {
	bodies map[string][]byte
}

func NewLayer() *Layer {
	return &Layer{bodies: make(map[string][]byte)}
}

// Store records a response body under name, replacing any earlier capture
// with the same name.
func (l *Layer) Store(name string, body []byte) {
	l.bodies[name] = append([]byte(nil), body...)
}

// Names returns the capture names currently held.
func (l *Layer) Names() []string {
	names := make([]string, 0, len(l.bodies))
	for name := range l.bodies {
		names = append(names, name)
	}
	return names
}

// Lookup implements template.Provider. A bare capture name yields the whole
// body; "name.path.to.field" evaluates the gjson path against the captured
// body. Non-JSON bodies only answer the bare-name form.
func (l *Layer) Lookup(name string) (string, bool) {
	if body, ok := l.bodies[name]; ok {
		return string(body), true
	}

	captureName, path, found := strings.Cut(name, ".")
	if !found {
		return "", false
	}
	return l.extract(captureName, path)
}

// Label implements template.Provider.
func (l *Layer) Label() string { return "captures" }

// extract evaluates a gjson path against the body captured under name.
func (l *Layer) extract(name, path string) (string, bool) {
	body, ok := l.bodies[name]
	if !ok {
		return "", false
	}
	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}
