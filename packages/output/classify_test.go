package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arkadyv/reqforge/packages/http"
)

func makeResponse(contentType string, body string) *http.Response {
	headers := map[string]string{}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	return &http.Response{
		StatusCode: 200,
		Status:     "200 OK",
		Headers:    headers,
		Body:       []byte(body),
		Duration:   12 * time.Millisecond,
		Size:       len(body),
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{
		"":      FormatAuto,
		"auto":  FormatAuto,
		"JSON":  FormatJSON,
		"yaml":  FormatYAML,
		"table": FormatTable,
		"raw":   FormatRaw,
	} {
		got, ok := ParseFormat(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := ParseFormat("xml")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        Shape
	}{
		{
			name:        "json object",
			contentType: "application/json",
			body:        `{"a":1}`,
			want:        ShapeJSON,
		},
		{
			name:        "flat object array becomes table",
			contentType: "application/json",
			body:        `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`,
			want:        ShapeTable,
		},
		{
			name:        "nested array stays json",
			contentType: "application/json",
			body:        `[{"id":1,"tags":["x"]}]`,
			want:        ShapeJSON,
		},
		{
			name:        "empty array stays json",
			contentType: "application/json",
			body:        `[]`,
			want:        ShapeJSON,
		},
		{
			name:        "invalid json with json content type degrades to raw",
			contentType: "application/json",
			body:        `{"broken":`,
			want:        ShapeRaw,
		},
		{
			name:        "json sniffed without content type",
			contentType: "",
			body:        `{"sniffed":true}`,
			want:        ShapeJSON,
		},
		{
			name:        "json sniffed under text/plain",
			contentType: "text/plain",
			body:        `[{"id":1}]`,
			want:        ShapeTable,
		},
		{
			name:        "html is raw",
			contentType: "text/html",
			body:        `<html><body>{"not":"sniffed"}</body></html>`,
			want:        ShapeRaw,
		},
		{
			name:        "plain text is raw",
			contentType: "text/plain",
			body:        "hello world",
			want:        ShapeRaw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(makeResponse(tt.contentType, tt.body)))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "2.0 MB", FormatBytes(2*1024*1024))
}
