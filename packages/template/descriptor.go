package template

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/arkadyv/reqforge/packages/descriptor"
)

// ResolveDescriptor returns a copy of d with placeholders substituted in
// the URL, every header value and the body. The input descriptor is left
// untouched so stored snapshots keep their template form.
func (s *Scope) ResolveDescriptor(d *descriptor.Descriptor) (*descriptor.Descriptor, error) {
	resolved := d.Clone()

	var err error
	if resolved.URL, err = s.Resolve(d.URL); err != nil {
		return nil, err
	}

	for i, h := range resolved.Headers {
		if resolved.Headers[i].Value, err = s.Resolve(h.Value); err != nil {
			return nil, err
		}
	}

	switch resolved.Body.Kind {
	case descriptor.BodyRaw:
		raw, err := s.Resolve(string(resolved.Body.Raw))
		if err != nil {
			return nil, err
		}
		resolved.Body.Raw = []byte(raw)
	case descriptor.BodyJSON:
		if resolved.Body.JSON, err = s.ResolveJSON(resolved.Body.JSON); err != nil {
			return nil, err
		}
	case descriptor.BodyForm:
		for i, f := range resolved.Body.Form {
			if resolved.Body.Form[i].Value, err = s.Resolve(f.Value); err != nil {
				return nil, err
			}
		}
	}

	return resolved, nil
}

// ResolveJSON substitutes placeholders in the string leaf values of a JSON
// document. Keys are never touched, so a malicious value cannot rewrite the
// document structure.
func (s *Scope) ResolveJSON(raw string) (string, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return "", fmt.Errorf("invalid JSON body: %w", err)
	}

	resolved, err := s.resolveJSONValue(value)
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(resolved)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (s *Scope) resolveJSONValue(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return s.Resolve(v)
	case map[string]any:
		for key, child := range v {
			resolved, err := s.resolveJSONValue(child)
			if err != nil {
				return nil, err
			}
			v[key] = resolved
		}
		return v, nil
	case []any:
		for i, child := range v {
			resolved, err := s.resolveJSONValue(child)
			if err != nil {
				return nil, err
			}
			v[i] = resolved
		}
		return v, nil
	default:
		return value, nil
	}
}
