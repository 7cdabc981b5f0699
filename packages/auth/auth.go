// Package auth parses authentication directives into a tagged Spec and
// resolves a Spec into concrete request headers. Parsing fails closed on
// unrecognized shapes; resolution never mutates the Spec.
package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind tags the authentication scheme a Spec describes.
type Kind string

const (
	KindBearer Kind = "bearer"
	KindBasic  Kind = "basic"
	KindAPIKey Kind = "apikey"
)

// DefaultAPIKeyHeader is used when an apikey directive omits the header name.
const DefaultAPIKeyHeader = "X-API-Key"

// Spec is the declarative credential intent attached to a request. Payload
// fields may contain template placeholders; they are resolved at header
// production time, not at parse time.
type Spec struct {
	Kind     Kind   `json:"kind"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Header   string `json:"header,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Header is one resolved (name, value) pair to merge into the request.
type Header struct {
	Name  string
	Value string
}

// ParseError reports a malformed auth directive.
type ParseError struct {
	Directive string
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid auth directive %q: %s", e.Directive, e.Reason)
}

// ParseDirective parses a colon-delimited directive string:
//
//	bearer:<token>
//	basic:<user>:<pass>
//	apikey:<header-name>:<value>
//	apikey:<value>            (header defaults to X-API-Key)
//
// Unknown kinds and missing segments fail with *ParseError.
func ParseDirective(directive string) (*Spec, error) {
	trimmed := strings.TrimSpace(directive)
	if trimmed == "" {
		return nil, &ParseError{Directive: directive, Reason: "empty directive"}
	}

	kind, rest, found := strings.Cut(trimmed, ":")
	if !found {
		return nil, &ParseError{Directive: directive, Reason: "expected <kind>:<payload>"}
	}

	switch strings.ToLower(kind) {
	case "bearer":
		if rest == "" {
			return nil, &ParseError{Directive: directive, Reason: "bearer requires a token"}
		}
		return &Spec{Kind: KindBearer, Token: rest}, nil

	case "basic":
		user, pass, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, &ParseError{Directive: directive, Reason: "basic requires user:pass"}
		}
		if user == "" {
			return nil, &ParseError{Directive: directive, Reason: "basic requires a username"}
		}
		return &Spec{Kind: KindBasic, Username: user, Password: pass}, nil

	case "apikey", "api-key":
		name, value, ok := strings.Cut(rest, ":")
		if !ok {
			if rest == "" {
				return nil, &ParseError{Directive: directive, Reason: "apikey requires a value"}
			}
			return &Spec{Kind: KindAPIKey, Header: DefaultAPIKeyHeader, Value: rest}, nil
		}
		if name == "" || value == "" {
			return nil, &ParseError{Directive: directive, Reason: "apikey requires header-name:value"}
		}
		return &Spec{Kind: KindAPIKey, Header: name, Value: value}, nil

	default:
		return nil, &ParseError{Directive: directive, Reason: fmt.Sprintf("unknown auth kind %q", kind)}
	}
}

// ResolveFunc expands template placeholders inside credential payloads.
type ResolveFunc func(string) (string, error)

// Headers produces the header pairs this Spec contributes, after running
// each payload field through resolve. The Spec itself is left untouched.
func (s *Spec) Headers(resolve ResolveFunc) ([]Header, error) {
	if resolve == nil {
		resolve = func(v string) (string, error) { return v, nil }
	}

	switch s.Kind {
	case KindBearer:
		token, err := resolve(s.Token)
		if err != nil {
			return nil, err
		}
		return []Header{{Name: "Authorization", Value: "Bearer " + token}}, nil

	case KindBasic:
		user, err := resolve(s.Username)
		if err != nil {
			return nil, err
		}
		pass, err := resolve(s.Password)
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		return []Header{{Name: "Authorization", Value: "Basic " + encoded}}, nil

	case KindAPIKey:
		value, err := resolve(s.Value)
		if err != nil {
			return nil, err
		}
		name := s.Header
		if name == "" {
			name = DefaultAPIKeyHeader
		}
		return []Header{{Name: name, Value: value}}, nil

	default:
		return nil, &ParseError{Directive: string(s.Kind), Reason: "unknown auth kind"}
	}
}
