// Package output classifies response bodies and renders them for display.
// Rendering always goes through the masking engine; the underlying response
// record stays untouched.
package output

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/arkadyv/reqforge/packages/http"
)

// Format is the user-selected output format. FormatAuto defers to
// classification.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
	FormatRaw   Format = "raw"
)

// ParseFormat validates a format name, defaulting empty to auto.
func ParseFormat(name string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return FormatAuto, true
	case FormatAuto:
		return FormatAuto, true
	case FormatJSON:
		return FormatJSON, true
	case FormatYAML:
		return FormatYAML, true
	case FormatTable:
		return FormatTable, true
	case FormatRaw:
		return FormatRaw, true
	default:
		return FormatRaw, false
	}
}

// Shape is the classified rendering shape of a response body.
type Shape int

const (
	ShapeRaw Shape = iota
	ShapeJSON
	ShapeTable
)

func (s Shape) String() string {
	switch s {
	case ShapeJSON:
		return "json"
	case ShapeTable:
		return "table"
	default:
		return "raw"
	}
}

// Classify decides the display shape for a response. The Content-Type
// header is consulted first; absent or unrecognized types fall back to
// structural sniffing before settling on raw text.
func Classify(resp *http.Response) Shape {
	ct := strings.ToLower(resp.ContentType())

	switch {
	case strings.Contains(ct, "application/json"):
		return classifyJSON(resp.Body)
	case ct == "" || strings.Contains(ct, "text/plain") || strings.Contains(ct, "octet-stream"):
		if looksLikeJSON(resp.Body) {
			return classifyJSON(resp.Body)
		}
	}
	return ShapeRaw
}

func looksLikeJSON(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// classifyJSON distinguishes a table-capable body (flat array of objects)
// from general JSON. Invalid JSON stays raw.
func classifyJSON(body []byte) Shape {
	if !gjson.ValidBytes(body) {
		return ShapeRaw
	}
	parsed := gjson.ParseBytes(body)
	if parsed.IsArray() && isFlatObjectArray(parsed) {
		return ShapeTable
	}
	return ShapeJSON
}

func isFlatObjectArray(arr gjson.Result) bool {
	rows := arr.Array()
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if !row.IsObject() {
			return false
		}
		flat := true
		row.ForEach(func(_, value gjson.Result) bool {
			if value.IsObject() || value.IsArray() {
				flat = false
				return false
			}
			return true
		})
		if !flat {
			return false
		}
	}
	return true
}
