package descriptor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/arkadyv/reqforge/packages/auth"
)

const (
	// DefaultTimeoutSeconds is applied when a descriptor carries no timeout.
	DefaultTimeoutSeconds = 30
	// MaxTimeoutSeconds is the upper bound accepted by Validate.
	MaxTimeoutSeconds = 3600
)

var validMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Header is a single name/value pair. Headers are kept as an ordered list;
// duplicate names are allowed and the last occurrence wins at send time.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BodyKind selects which body variant is active.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyRaw
	BodyJSON
	BodyForm
)

func (k BodyKind) String() string {
	switch k {
	case BodyNone:
		return "none"
	case BodyRaw:
		return "raw"
	case BodyJSON:
		return "json"
	case BodyForm:
		return "form"
	default:
		return "unknown"
	}
}

// FormField is one key/value pair of a form-encoded body.
type FormField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Body is a variant type: exactly one of Raw, JSON or Form is populated,
// selected by Kind. A zero Body means no body.
type Body struct {
	Kind        BodyKind    `json:"kind"`
	Raw         []byte      `json:"raw,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	JSON        string      `json:"json,omitempty"`
	Form        []FormField `json:"form,omitempty"`
}

// Descriptor is one composable HTTP request before resolution.
type Descriptor struct {
	Method          string     `json:"method"`
	URL             string     `json:"url"`
	Headers         []Header   `json:"headers,omitempty"`
	Body            Body       `json:"body"`
	Auth            *auth.Spec `json:"auth,omitempty"`
	TimeoutSeconds  int        `json:"timeoutSeconds,omitempty"`
	FollowRedirects bool       `json:"followRedirects"`
}

func New(method, rawURL string) *Descriptor {
	return &Descriptor{
		Method:          strings.ToUpper(strings.TrimSpace(method)),
		URL:             rawURL,
		FollowRedirects: true,
	}
}

func (d *Descriptor) SetHeader(name, value string) *Descriptor {
	d.Headers = append(d.Headers, Header{Name: name, Value: value})
	return d
}

// HeaderValue returns the effective value for a header name, honouring
// last-write-wins over the ordered list. The lookup is case-insensitive.
func (d *Descriptor) HeaderValue(name string) string {
	value := ""
	for _, h := range d.Headers {
		if strings.EqualFold(h.Name, name) {
			value = h.Value
		}
	}
	return value
}

func (d *Descriptor) SetRawBody(data []byte, contentType string) *Descriptor {
	d.Body = Body{Kind: BodyRaw, Raw: data, ContentType: contentType}
	return d
}

func (d *Descriptor) SetJSONBody(raw string) *Descriptor {
	d.Body = Body{Kind: BodyJSON, JSON: raw}
	return d
}

func (d *Descriptor) SetFormBody(fields []FormField) *Descriptor {
	d.Body = Body{Kind: BodyForm, Form: fields}
	return d
}

func (d *Descriptor) SetAuth(spec *auth.Spec) *Descriptor {
	d.Auth = spec
	return d
}

func (d *Descriptor) SetTimeout(seconds int) *Descriptor {
	d.TimeoutSeconds = seconds
	return d
}

// Timeout returns the configured timeout in seconds, falling back to the
// default when unset.
func (d *Descriptor) Timeout() int {
	if d.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds
	}
	return d.TimeoutSeconds
}

// EffectiveContentType is the Content-Type the body variant implies unless
// an explicit header overrides it.
func (d *Descriptor) EffectiveContentType() string {
	if ct := d.HeaderValue("Content-Type"); ct != "" {
		return ct
	}
	switch d.Body.Kind {
	case BodyRaw:
		return d.Body.ContentType
	case BodyJSON:
		return "application/json"
	case BodyForm:
		return "application/x-www-form-urlencoded"
	default:
		return ""
	}
}

// BodyBytes renders the active body variant to the bytes that go on the
// wire. Form bodies are URL-encoded in field order.
func (d *Descriptor) BodyBytes() []byte {
	switch d.Body.Kind {
	case BodyRaw:
		return d.Body.Raw
	case BodyJSON:
		return []byte(d.Body.JSON)
	case BodyForm:
		values := make([]string, 0, len(d.Body.Form))
		for _, f := range d.Body.Form {
			values = append(values, url.QueryEscape(f.Key)+"="+url.QueryEscape(f.Value))
		}
		return []byte(strings.Join(values, "&"))
	default:
		return nil
	}
}

// Validate checks the descriptor is executable: known method, absolute
// http(s) URL, a single coherent body variant and a sane timeout. Call it
// after template resolution - a templated URL will not parse as absolute.
func (d *Descriptor) Validate() error {
	if !validMethods[d.Method] {
		return fmt.Errorf("invalid HTTP method: %q", d.Method)
	}

	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", d.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q must have a host", d.URL)
	}

	if err := d.Body.validate(); err != nil {
		return err
	}

	if d.TimeoutSeconds < 0 || d.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("timeout must be between 0 and %d seconds, got %d", MaxTimeoutSeconds, d.TimeoutSeconds)
	}

	return nil
}

func (b *Body) validate() error {
	switch b.Kind {
	case BodyNone:
		if len(b.Raw) > 0 || b.JSON != "" || len(b.Form) > 0 {
			return fmt.Errorf("body kind is none but payload fields are set")
		}
	case BodyRaw:
		if b.JSON != "" || len(b.Form) > 0 {
			return fmt.Errorf("raw body must not carry json or form payloads")
		}
	case BodyJSON:
		if len(b.Raw) > 0 || len(b.Form) > 0 {
			return fmt.Errorf("json body must not carry raw or form payloads")
		}
		if !json.Valid([]byte(b.JSON)) {
			return fmt.Errorf("invalid JSON body")
		}
	case BodyForm:
		if len(b.Raw) > 0 || b.JSON != "" {
			return fmt.Errorf("form body must not carry raw or json payloads")
		}
	default:
		return fmt.Errorf("unknown body kind %d", b.Kind)
	}
	return nil
}

// Clone returns a deep copy so callers can resolve templates without
// touching the stored snapshot.
func (d *Descriptor) Clone() *Descriptor {
	clone := *d
	clone.Headers = make([]Header, len(d.Headers))
	copy(clone.Headers, d.Headers)
	if d.Body.Raw != nil {
		clone.Body.Raw = append([]byte(nil), d.Body.Raw...)
	}
	if d.Body.Form != nil {
		clone.Body.Form = make([]FormField, len(d.Body.Form))
		copy(clone.Body.Form, d.Body.Form)
	}
	if d.Auth != nil {
		specCopy := *d.Auth
		clone.Auth = &specCopy
	}
	return &clone
}

// Equal reports whether two descriptors describe the same request. Used by
// save/load round-trip checks.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	a, errA := json.Marshal(d)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}
