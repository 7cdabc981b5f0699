package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkadyv/reqforge/packages/auth"
)

func TestNew_Defaults(t *testing.T) {
	d := New("get", "https://api.example.com/users")

	assert.Equal(t, "GET", d.Method)
	assert.Equal(t, "https://api.example.com/users", d.URL)
	assert.True(t, d.FollowRedirects)
	assert.Equal(t, 30, d.Timeout())
	assert.Equal(t, BodyNone, d.Body.Kind)
}

func TestDescriptor_HeaderValue(t *testing.T) {
	d := New("GET", "https://example.com").
		SetHeader("Accept", "text/plain").
		SetHeader("accept", "application/json")

	assert.Equal(t, "application/json", d.HeaderValue("ACCEPT"))
	assert.Equal(t, "", d.HeaderValue("X-Missing"))
	// both writes are preserved in order
	assert.Len(t, d.Headers, 2)
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Descriptor
		wantErr string
	}{
		{
			name:  "valid GET",
			build: func() *Descriptor { return New("GET", "https://example.com/path") },
		},
		{
			name:    "bad method",
			build:   func() *Descriptor { return New("FETCH", "https://example.com") },
			wantErr: "invalid HTTP method",
		},
		{
			name:    "relative URL",
			build:   func() *Descriptor { return New("GET", "/users") },
			wantErr: "scheme",
		},
		{
			name:    "ftp scheme",
			build:   func() *Descriptor { return New("GET", "ftp://example.com/file") },
			wantErr: "unsupported URL scheme",
		},
		{
			name:    "missing host",
			build:   func() *Descriptor { return New("GET", "https://") },
			wantErr: "must have a host",
		},
		{
			name:    "invalid json body",
			build:   func() *Descriptor { return New("POST", "https://example.com").SetJSONBody(`{"a":`) },
			wantErr: "invalid JSON body",
		},
		{
			name: "timeout out of range",
			build: func() *Descriptor {
				d := New("GET", "https://example.com")
				d.TimeoutSeconds = 4000
				return d
			},
			wantErr: "timeout must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDescriptor_BodyBytes_Form(t *testing.T) {
	d := New("POST", "https://example.com").SetFormBody([]FormField{
		{Key: "name", Value: "ada lovelace"},
		{Key: "role", Value: "admin&ops"},
	})

	assert.Equal(t, "name=ada+lovelace&role=admin%26ops", string(d.BodyBytes()))
	assert.Equal(t, "application/x-www-form-urlencoded", d.EffectiveContentType())
}

func TestDescriptor_EffectiveContentType(t *testing.T) {
	d := New("POST", "https://example.com").SetJSONBody(`{"ok":true}`)
	assert.Equal(t, "application/json", d.EffectiveContentType())

	d = New("POST", "https://example.com").SetRawBody([]byte("plain"), "text/plain")
	assert.Equal(t, "text/plain", d.EffectiveContentType())

	d = New("GET", "https://example.com")
	assert.Equal(t, "", d.EffectiveContentType())
}

func TestDescriptor_CloneIsDeep(t *testing.T) {
	original := New("POST", "https://example.com").
		SetHeader("X-Trace", "abc").
		SetJSONBody(`{"a":1}`).
		SetAuth(&auth.Spec{Kind: auth.KindBearer, Token: "tok"})

	clone := original.Clone()
	clone.Headers[0].Value = "changed"
	clone.Auth.Token = "other"
	clone.Body.JSON = `{"a":2}`

	assert.Equal(t, "abc", original.Headers[0].Value)
	assert.Equal(t, "tok", original.Auth.Token)
	assert.Equal(t, `{"a":1}`, original.Body.JSON)
}

func TestDescriptor_Equal(t *testing.T) {
	a := New("GET", "https://example.com").SetHeader("Accept", "application/json")
	b := New("GET", "https://example.com").SetHeader("Accept", "application/json")
	c := New("GET", "https://example.com").SetHeader("Accept", "text/html")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
