// Package mask produces display-safe copies of sensitive request and
// response data. Masking is applied to rendered output and history only;
// the descriptors and responses used for transmission and replay are never
// touched.
package mask

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Marker replaces the interior of a masked value. Its presence is also how
// already-masked values are detected, which makes masking idempotent.
const Marker = "****"

const (
	// RevealPrefix and RevealSuffix are how many raw characters stay
	// visible at each end of a masked value.
	RevealPrefix = 2
	RevealSuffix = 2
)

// Rule describes one way of identifying sensitive data: header names,
// body field names, or a regular expression over values.
type Rule struct {
	Headers []string
	Fields  []string
	Pattern string
}

// RuleError reports a malformed rule pattern. The engine stays usable:
// a broken value pattern degrades to matching every value, so a bad rule
// can only over-mask, never under-mask.
type RuleError struct {
	Pattern string
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid mask rule pattern %q: %v", e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// DefaultRules flags the credential-shaped header and body field names
// masked out of the box.
func DefaultRules() []Rule {
	return []Rule{
		{
			Headers: []string{
				"authorization",
				"proxy-authorization",
				"cookie",
				"set-cookie",
				"x-api-key",
				"api-key",
				"x-auth-token",
			},
			Fields: []string{
				"token",
				"password",
				"secret",
				"api_key",
				"apikey",
				"access_token",
				"refresh_token",
				"client_secret",
			},
		},
	}
}

// Engine classifies names and values against a rule set and rewrites the
// sensitive ones to their masked display form.
type Engine struct {
	headerNames map[string]bool
	fieldNames  map[string]bool
	patterns    []*regexp.Regexp
	maskAll     bool
}

// NewEngine compiles a rule set. A rule with an invalid value pattern is
// reported through the returned *RuleError, and the engine falls back to
// treating every value under that rule's scope as sensitive.
func NewEngine(rules ...Rule) (*Engine, error) {
	e := &Engine{
		headerNames: make(map[string]bool),
		fieldNames:  make(map[string]bool),
	}

	var ruleErr error
	for _, rule := range rules {
		for _, name := range rule.Headers {
			e.headerNames[strings.ToLower(name)] = true
		}
		for _, name := range rule.Fields {
			e.fieldNames[strings.ToLower(name)] = true
		}
		if rule.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			e.maskAll = true
			if ruleErr == nil {
				ruleErr = &RuleError{Pattern: rule.Pattern, Err: err}
			}
			continue
		}
		e.patterns = append(e.patterns, re)
	}

	return e, ruleErr
}

// NewDefaultEngine builds an engine over DefaultRules. The default rules
// carry no regex patterns, so construction cannot fail.
func NewDefaultEngine() *Engine {
	e, _ := NewEngine(DefaultRules()...)
	return e
}

// Value masks a single sensitive value: a short visible prefix and suffix
// with the interior replaced by Marker. Values too short to safely reveal
// anything are masked in full. Masking an already-masked value is a no-op.
func (e *Engine) Value(v string) string {
	if v == "" || strings.Contains(v, Marker) {
		return v
	}
	if len(v) <= RevealPrefix+RevealSuffix {
		return strings.Repeat("*", len(v))
	}
	return v[:RevealPrefix] + Marker + v[len(v)-RevealSuffix:]
}

// SensitiveHeader reports whether a header name is credential-shaped.
func (e *Engine) SensitiveHeader(name string) bool {
	return e.headerNames[strings.ToLower(name)]
}

// SensitiveField reports whether a body field name is credential-shaped.
func (e *Engine) SensitiveField(name string) bool {
	return e.fieldNames[strings.ToLower(name)]
}

// sensitiveValue applies value-shape patterns. With maskAll set (broken
// rule pattern) every value is treated as sensitive.
func (e *Engine) sensitiveValue(v string) bool {
	if e.maskAll {
		return true
	}
	for _, re := range e.patterns {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// HeaderMap returns a masked copy of a header map. The input is not
// modified.
func (e *Engine) HeaderMap(headers map[string]string) map[string]string {
	masked := make(map[string]string, len(headers))
	for name, value := range headers {
		if e.SensitiveHeader(name) || e.sensitiveValue(value) {
			masked[name] = e.Value(value)
		} else {
			masked[name] = value
		}
	}
	return masked
}

// Body masks the sensitive parts of a response or request body for
// display. JSON documents are walked and only the values of sensitive
// fields are rewritten; anything that does not parse as JSON is run
// through the value patterns alone.
func (e *Engine) Body(body []byte) []byte {
	if len(body) == 0 {
		return body
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err == nil {
		masked := e.maskJSONValue(doc, false)
		if encoded, err := json.Marshal(masked); err == nil {
			return encoded
		}
	}

	if !e.maskAll && len(e.patterns) == 0 {
		return body
	}
	if e.sensitiveValue(string(body)) {
		return []byte(e.Value(string(body)))
	}
	return body
}

func (e *Engine) maskJSONValue(value any, sensitive bool) any {
	switch v := value.(type) {
	case map[string]any:
		masked := make(map[string]any, len(v))
		for key, child := range v {
			masked[key] = e.maskJSONValue(child, e.SensitiveField(key))
		}
		return masked
	case []any:
		masked := make([]any, len(v))
		for i, child := range v {
			masked[i] = e.maskJSONValue(child, sensitive)
		}
		return masked
	case string:
		if sensitive || e.sensitiveValue(v) {
			return e.Value(v)
		}
		return v
	default:
		return value
	}
}
